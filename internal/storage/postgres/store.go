// Package postgres implements the price store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/zenon-tools/pricefeed/internal/config"
	"github.com/zenon-tools/pricefeed/internal/domain/price"
	"github.com/zenon-tools/pricefeed/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS coingecko (
	id SERIAL PRIMARY KEY,
	currency_id VARCHAR(255),
	currency_value REAL,
	timestamp TIMESTAMP(6) DEFAULT CURRENT_TIMESTAMP
)`

// Store implements storage.PriceStore backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.PriceStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL, applies pool limits and verifies the
// connection with a bounded ping.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the coingecko table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertPrices appends one row per record inside a single transaction. A zero
// Timestamp is left to the column default.
func (s *Store) InsertPrices(ctx context.Context, records []price.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transaction: %w", err)
	}

	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO coingecko (currency_id, currency_value)
				VALUES ($1, $2)
			`, rec.CurrencyID, rec.Value)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO coingecko (currency_id, currency_value, timestamp)
				VALUES ($1, $2, $3)
			`, rec.CurrencyID, rec.Value, rec.Timestamp.UTC())
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert price for %s: %w", rec.CurrencyID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price insert: %w", err)
	}
	return nil
}

// LatestPrice returns the most recent observation for a currency.
func (s *Store) LatestPrice(ctx context.Context, currencyID string) (price.Record, error) {
	var rec price.Record
	err := s.db.GetContext(ctx, &rec, `
		SELECT id, currency_id, currency_value, timestamp
		FROM coingecko
		WHERE currency_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`, currencyID)
	if errors.Is(err, sql.ErrNoRows) {
		return price.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return price.Record{}, fmt.Errorf("query latest price for %s: %w", currencyID, err)
	}
	return rec, nil
}

// PruneOlderThan deletes observations older than the cutoff and reports the
// number of rows removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM coingecko WHERE timestamp < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune price records: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// Ping verifies database connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
