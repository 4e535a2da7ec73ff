package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/zenon-tools/pricefeed/internal/domain/price"
	"github.com/zenon-tools/pricefeed/internal/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestInsertPricesSingleTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	records := []price.Record{
		{CurrencyID: "bitcoin", Value: 43250.00},
		{CurrencyID: "ethereum", Value: 2280.50},
		{CurrencyID: "zenon-2", Value: 1.25},
		{CurrencyID: "quasar-2", Value: 0.15},
	}

	mock.ExpectBegin()
	for _, rec := range records {
		mock.ExpectExec("INSERT INTO coingecko").
			WithArgs(rec.CurrencyID, rec.Value).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.InsertPrices(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPricesRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coingecko").
		WithArgs("bitcoin", 43250.00).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO coingecko").
		WithArgs("ethereum", 2280.50).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.InsertPrices(context.Background(), []price.Record{
		{CurrencyID: "bitcoin", Value: 43250.00},
		{CurrencyID: "ethereum", Value: 2280.50},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPricesEmptyBatchIsNoop(t *testing.T) {
	store, mock := newMockStore(t)

	require.NoError(t, store.InsertPrices(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPrice(t *testing.T) {
	store, mock := newMockStore(t)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, currency_id, currency_value, timestamp FROM coingecko").
		WithArgs("bitcoin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "currency_id", "currency_value", "timestamp"}).
			AddRow(int64(7), "bitcoin", 43250.00, ts))

	rec, err := store.LatestPrice(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Equal(t, int64(7), rec.ID)
	require.Equal(t, 43250.00, rec.Value)
	require.True(t, rec.Timestamp.Equal(ts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPriceNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, currency_id, currency_value, timestamp FROM coingecko").
		WithArgs("ethereum").
		WillReturnRows(sqlmock.NewRows([]string{"id", "currency_id", "currency_value", "timestamp"}))

	_, err := store.LatestPrice(context.Background(), "ethereum")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneOlderThan(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM coingecko").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.PruneOlderThan(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if err := store.InsertPrices(ctx, []price.Record{
		{CurrencyID: "zenon-2", Value: 1.25},
	}); err != nil {
		t.Fatalf("insert prices: %v", err)
	}

	rec, err := store.LatestPrice(ctx, "zenon-2")
	if err != nil {
		t.Fatalf("latest price: %v", err)
	}
	if rec.Value != 1.25 {
		t.Fatalf("unexpected value %v", rec.Value)
	}
	if rec.Timestamp.IsZero() {
		t.Fatalf("expected storage to default the timestamp")
	}
}
