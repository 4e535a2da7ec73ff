// Package storage defines the persistence contracts for price records.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/zenon-tools/pricefeed/internal/domain/price"
)

// ErrNotFound is returned when an asset has no stored observations.
var ErrNotFound = errors.New("price record not found")

// PriceStore persists price observations. Implementations must commit
// InsertPrices atomically: either every record in the batch becomes visible or
// none of it does.
type PriceStore interface {
	InsertPrices(ctx context.Context, records []price.Record) error
	LatestPrice(ctx context.Context, currencyID string) (price.Record, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pinger reports storage liveness for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
