package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order. Every statement is idempotent so Migrate can run on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id           BIGSERIAL PRIMARY KEY,
		external_id  TEXT NOT NULL UNIQUE,
		balance      NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		usage_count  BIGINT NOT NULL DEFAULT 0,
		last_used_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS prices (
		id           BIGSERIAL PRIMARY KEY,
		station_a_id BIGINT NOT NULL REFERENCES stations (id),
		station_b_id BIGINT NOT NULL REFERENCES stations (id),
		price        NUMERIC(12,2) NOT NULL CHECK (price > 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (station_a_id < station_b_id),
		UNIQUE (station_a_id, station_b_id)
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id                     BIGSERIAL PRIMARY KEY,
		card_id                BIGINT NOT NULL REFERENCES cards (id),
		source_station_id      BIGINT NOT NULL REFERENCES stations (id),
		destination_station_id BIGINT REFERENCES stations (id),
		cost                   NUMERIC(12,2) NOT NULL DEFAULT 0,
		status                 TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'cancelled')),
		started_at             TIMESTAMPTZ NOT NULL,
		completed_at           TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS trips_one_active_per_card ON trips (card_id) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS trips_card_started_idx ON trips (card_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id               BIGSERIAL PRIMARY KEY,
		card_id          BIGINT NOT NULL REFERENCES cards (id),
		amount           NUMERIC(12,2) NOT NULL CHECK (amount <> 0),
		previous_balance NUMERIC(12,2) NOT NULL,
		new_balance      NUMERIC(12,2) NOT NULL,
		station_id       BIGINT REFERENCES stations (id),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (new_balance = previous_balance + amount)
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_card_idx ON transactions (card_id, id)`,
	`CREATE INDEX IF NOT EXISTS transactions_station_idx ON transactions (station_id)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL,
		key_hash     TEXT NOT NULL UNIQUE,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		usage_count  BIGINT NOT NULL DEFAULT 0,
		last_used_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: migration step %d: %w", i+1, err)
		}
	}
	return nil
}
