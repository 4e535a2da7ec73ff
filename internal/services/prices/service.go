// Package prices serves the latest-price read path: snapshot cache first,
// storage on miss.
package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zenon-tools/pricefeed/internal/cache"
	"github.com/zenon-tools/pricefeed/internal/domain/price"
	"github.com/zenon-tools/pricefeed/internal/metrics"
	"github.com/zenon-tools/pricefeed/internal/storage"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

// Service answers "what are the latest prices". The cache is an optimization:
// any cache failure degrades to a storage read, never to an error.
type Service struct {
	store   storage.PriceStore
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logger.Logger
}

// Response is the /price payload. Assets without a stored observation are
// absent from Data.
type Response struct {
	Data map[string]price.Quote `json:"data"`
}

// New constructs the query service.
func New(store storage.PriceStore, c cache.Cache, ttl time.Duration, m *metrics.Metrics, log *logger.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = logger.NewDefault("prices")
	}
	return &Service{
		store:   store,
		cache:   c,
		ttl:     ttl,
		metrics: m,
		log:     log,
	}
}

// GetPrices returns the serialized response, from cache when warm. Cached
// bytes are returned verbatim so repeated calls within the TTL are
// byte-identical. Storage errors are surfaced to the caller.
func (s *Service) GetPrices(ctx context.Context) ([]byte, error) {
	cached, err := s.cache.Get(ctx, cache.SnapshotKey)
	if err == nil {
		s.metrics.CacheHit()
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).Warn("cache unavailable; falling back to storage")
	}
	s.metrics.CacheMiss()

	body, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.SnapshotKey, body, s.ttl); err != nil {
		s.log.WithError(err).Warn("failed to store snapshot in cache")
	}
	return body, nil
}

// assemble queries the latest observation per asset and serializes the
// response. Assets with no rows yet are omitted, not reported as errors.
func (s *Service) assemble(ctx context.Context) ([]byte, error) {
	data := make(map[string]price.Quote)
	for _, asset := range price.Assets() {
		s.metrics.StorageRead()
		rec, err := s.store.LatestPrice(ctx, asset.ProviderID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("latest price for %s: %w", asset.ProviderID, err)
		}
		data[asset.Code] = price.Quote{
			USD:       rec.Value,
			Timestamp: rec.Timestamp.UTC().Format(price.TimestampFormat),
		}
	}

	body, err := json.Marshal(Response{Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal price response: %w", err)
	}
	return body, nil
}
