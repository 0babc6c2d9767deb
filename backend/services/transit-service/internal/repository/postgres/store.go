// Package postgres implements the repository contracts on top of database/sql with the
// pgx driver. Row locks are taken with SELECT ... FOR UPDATE inside Store.WithinTx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"transitkiosk/backend/services/transit-service/internal/repository"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the Postgres-backed repository.Store.
type Store struct {
	db *sql.DB
	repos
}

// NewStore wraps an open pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repos: repos{q: db}}
}

// WithinTx runs fn in a read-committed transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}

	if err := fn(repos{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", mapError(err))
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type repos struct {
	q querier
}

func (r repos) Cards() repository.CardRepository       { return &CardRepository{q: r.q} }
func (r repos) Stations() repository.StationRepository { return &StationRepository{q: r.q} }
func (r repos) Prices() repository.PriceRepository     { return &PriceRepository{q: r.q} }
func (r repos) Trips() repository.TripRepository       { return &TripRepository{q: r.q} }
func (r repos) Ledger() repository.LedgerRepository    { return &LedgerRepository{q: r.q} }
func (r repos) APIKeys() repository.APIKeyRepository   { return &APIKeyRepository{q: r.q} }

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
