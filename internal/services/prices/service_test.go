package prices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zenon-tools/pricefeed/internal/cache/memcache"
	"github.com/zenon-tools/pricefeed/internal/domain/price"
	"github.com/zenon-tools/pricefeed/internal/storage"
	"github.com/zenon-tools/pricefeed/internal/storage/memory"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

func testLogger() *logger.Logger {
	log := logger.NewDefault("prices-test")
	log.SetOutput(io.Discard)
	return log
}

// countingStore tracks how many latest-price queries reach storage.
type countingStore struct {
	storage.PriceStore
	reads atomic.Int64
}

func (s *countingStore) LatestPrice(ctx context.Context, currencyID string) (price.Record, error) {
	s.reads.Add(1)
	return s.PriceStore.LatestPrice(ctx, currencyID)
}

// downCache simulates an unreachable cache backend: every operation fails
// with a transport error rather than a miss.
type downCache struct {
	sets atomic.Int64
}

func (*downCache) Get(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("dial tcp 127.0.0.1:6379: connection refused")
}

func (c *downCache) Set(context.Context, string, []byte, time.Duration) error {
	c.sets.Add(1)
	return fmt.Errorf("dial tcp 127.0.0.1:6379: connection refused")
}

func (*downCache) Ping(context.Context) error {
	return fmt.Errorf("dial tcp 127.0.0.1:6379: connection refused")
}

// failingStore simulates a storage read outage.
type failingStore struct{}

func (failingStore) InsertPrices(context.Context, []price.Record) error { return nil }
func (failingStore) LatestPrice(context.Context, string) (price.Record, error) {
	return price.Record{}, fmt.Errorf("connection reset")
}
func (failingStore) PruneOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := store.InsertPrices(context.Background(), []price.Record{
		{CurrencyID: "bitcoin", Value: 43250.00, Timestamp: ts},
		{CurrencyID: "ethereum", Value: 2280.50, Timestamp: ts},
		{CurrencyID: "zenon-2", Value: 1.25, Timestamp: ts},
		{CurrencyID: "quasar-2", Value: 0.15, Timestamp: ts},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func TestGetPricesColdCache(t *testing.T) {
	store := &countingStore{PriceStore: seedStore(t)}
	svc := New(store, memcache.New(), 30*time.Second, nil, nil)

	body, err := svc.GetPrices(context.Background())
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if got := store.reads.Load(); got != 4 {
		t.Fatalf("expected exactly one storage query per asset, got %d", got)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data) != 4 {
		t.Fatalf("expected 4 assets, got %d", len(resp.Data))
	}
	if resp.Data["btc"].USD != 43250.00 || resp.Data["znn"].USD != 1.25 {
		t.Fatalf("unexpected values: %+v", resp.Data)
	}
	if resp.Data["btc"].Timestamp != "2024-05-01T12:00:00.000000Z" {
		t.Fatalf("unexpected timestamp format: %s", resp.Data["btc"].Timestamp)
	}
}

func TestGetPricesWarmCacheBypassesStorage(t *testing.T) {
	store := &countingStore{PriceStore: seedStore(t)}
	svc := New(store, memcache.New(), 30*time.Second, nil, nil)

	first, err := svc.GetPrices(context.Background())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetPrices(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("cached response must be byte-identical")
	}
	if got := store.reads.Load(); got != 4 {
		t.Fatalf("warm cache must not query storage, reads = %d", got)
	}
}

func TestGetPricesRecomputesAfterExpiry(t *testing.T) {
	store := &countingStore{PriceStore: seedStore(t)}
	now := time.Now()
	c := memcache.New().WithClock(func() time.Time { return now })
	svc := New(store, c, 30*time.Second, nil, nil)

	if _, err := svc.GetPrices(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	now = now.Add(31 * time.Second)
	if _, err := svc.GetPrices(context.Background()); err != nil {
		t.Fatalf("call after expiry: %v", err)
	}

	if got := store.reads.Load(); got != 8 {
		t.Fatalf("expected one query per asset per cold pass, got %d", got)
	}
}

func TestGetPricesOmitsAssetsWithoutRows(t *testing.T) {
	store := memory.New()
	if err := store.InsertPrices(context.Background(), []price.Record{
		{CurrencyID: "bitcoin", Value: 43250.00},
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	svc := New(store, memcache.New(), 30*time.Second, nil, nil)

	body, err := svc.GetPrices(context.Background())
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("expected only seeded asset, got %+v", resp.Data)
	}
	if _, present := resp.Data["eth"]; present {
		t.Fatalf("asset without rows must be absent, not null or zero")
	}
}

func TestGetPricesCacheOutageFallsBackToStorage(t *testing.T) {
	store := &countingStore{PriceStore: seedStore(t)}
	c := &downCache{}
	svc := New(store, c, 30*time.Second, nil, testLogger())

	body, err := svc.GetPrices(context.Background())
	if err != nil {
		t.Fatalf("cache outage must not surface: %v", err)
	}
	if got := store.reads.Load(); got != 4 {
		t.Fatalf("expected one storage query per asset, got %d", got)
	}
	if got := c.sets.Load(); got != 1 {
		t.Fatalf("expected one attempted snapshot write, got %d", got)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data) != 4 {
		t.Fatalf("expected all assets despite cache outage, got %d", len(resp.Data))
	}
}

func TestGetPricesSurfacesStorageErrors(t *testing.T) {
	svc := New(failingStore{}, memcache.New(), 30*time.Second, nil, nil)

	if _, err := svc.GetPrices(context.Background()); err == nil {
		t.Fatalf("expected storage failure to surface")
	}
}

func TestGetPricesWithoutCacheStillServes(t *testing.T) {
	store := &countingStore{PriceStore: seedStore(t)}
	svc := New(store, nil, 30*time.Second, nil, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.GetPrices(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// The noop cache misses every time; both calls hit storage.
	if got := store.reads.Load(); got != 8 {
		t.Fatalf("expected storage fallback on every call, reads = %d", got)
	}
}
