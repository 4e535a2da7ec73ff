// Package collector fetches prices from the external provider and appends
// them to storage on a fixed schedule.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/zenon-tools/pricefeed/internal/metrics"
	"github.com/zenon-tools/pricefeed/internal/storage"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

// Service runs one collection cycle at a time. Each run is independent: a
// failed run leaves no state behind and the next scheduled run is the retry.
type Service struct {
	store   storage.PriceStore
	fetcher Fetcher
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New constructs a collector service.
func New(store storage.PriceStore, fetcher Fetcher, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("collector")
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		metrics: m,
		log:     log,
	}
}

// Collect fetches current prices and appends one row per returned asset in a
// single transaction. Any failure aborts the run with zero rows written.
func (s *Service) Collect(ctx context.Context) error {
	records, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.metrics.CollectorRun(false)
		return fmt.Errorf("fetch prices: %w", err)
	}
	if len(records) == 0 {
		s.metrics.CollectorRun(false)
		return fmt.Errorf("provider returned no usable prices")
	}

	if err := s.store.InsertPrices(ctx, records); err != nil {
		s.metrics.CollectorRun(false)
		return fmt.Errorf("insert prices: %w", err)
	}

	s.metrics.CollectorRun(true)
	s.metrics.RowsInserted(len(records))
	s.log.WithField("rows", len(records)).Info("price records inserted")
	return nil
}

// Prune removes observations older than the retention horizon.
func (s *Service) Prune(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	removed, err := s.store.PruneOlderThan(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return fmt.Errorf("prune old prices: %w", err)
	}
	if removed > 0 {
		s.log.WithField("rows", removed).Info("pruned old price records")
	}
	return nil
}
