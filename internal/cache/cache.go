// Package cache defines the snapshot cache contract. The cache is an
// optimization only: implementations may lose data at any time and callers
// must treat any failure as a miss.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// SnapshotKey is the fixed key for the /price response snapshot. The endpoint
// takes no parameters, so one key covers it.
const SnapshotKey = "all_prices"

// Cache stores serialized response snapshots with TTL expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Noop never stores anything. Used when no cache backend is configured.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Ping(context.Context) error { return nil }
