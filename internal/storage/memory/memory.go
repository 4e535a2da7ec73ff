// Package memory provides a thread-safe in-memory price store. It is intended
// for tests and prototyping and deliberately keeps the implementation simple.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zenon-tools/pricefeed/internal/domain/price"
	"github.com/zenon-tools/pricefeed/internal/storage"
)

// Store implements storage.PriceStore in memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	records []price.Record
}

var _ storage.PriceStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) InsertPrices(_ context.Context, records []price.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, rec := range records {
		rec.ID = s.nextID
		s.nextID++
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *Store) LatestPrice(_ context.Context, currencyID string) (price.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest price.Record
	found := false
	for _, rec := range s.records {
		if rec.CurrencyID != currencyID {
			continue
		}
		if !found || rec.Timestamp.After(latest.Timestamp) ||
			(rec.Timestamp.Equal(latest.Timestamp) && rec.ID > latest.ID) {
			latest = rec
			found = true
		}
	}
	if !found {
		return price.Record{}, storage.ErrNotFound
	}
	return latest, nil
}

func (s *Store) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, rec := range s.records {
		if rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
