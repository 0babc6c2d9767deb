// Package repository declares the storage contracts shared by the Postgres and in-memory
// stores. Both honour the same transactional semantics: every write performed inside
// WithinTx commits together or not at all.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
)

var (
	// ErrNotFound represents a missing row.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict represents a uniqueness violation or a lost conditional update.
	ErrConflict = errors.New("repository: conflict")
)

// Store is the entry point to persistence. Repositories reached directly from the Store
// run outside any transaction and take no row locks.
type Store interface {
	Repositories
	// WithinTx runs fn inside one transaction. A non-nil error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Repositories groups the per-table repositories bound to one connection or transaction.
type Repositories interface {
	Cards() CardRepository
	Stations() StationRepository
	Prices() PriceRepository
	Trips() TripRepository
	Ledger() LedgerRepository
	APIKeys() APIKeyRepository
}

// CardRepository stores cards. It deliberately offers no way to change a balance.
type CardRepository interface {
	// Create inserts a card with a zero balance.
	Create(ctx context.Context, card *models.Card) error
	Get(ctx context.Context, id int64) (*models.Card, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Card, error)
	// GetForUpdate reads the card and holds its row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Card, error)
	List(ctx context.Context, limit, offset int) ([]models.Card, error)
}

// StationRepository stores the station catalog.
type StationRepository interface {
	Create(ctx context.Context, station *models.Station) error
	Get(ctx context.Context, id int64) (*models.Station, error)
	List(ctx context.Context) ([]models.Station, error)
	Rename(ctx context.Context, id int64, name string) (*models.Station, error)
	Delete(ctx context.Context, id int64) error
	// IsReferenced reports whether any price, trip or transaction points at the station.
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

// PriceRepository stores fares keyed by canonical station pairs.
type PriceRepository interface {
	Create(ctx context.Context, price *models.Price) error
	Get(ctx context.Context, id int64) (*models.Price, error)
	// GetPair expects a canonical (lower, higher) pair.
	GetPair(ctx context.Context, a, b int64) (*models.Price, error)
	UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal) (*models.Price, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.Price, error)
	ListForStation(ctx context.Context, stationID int64) ([]models.Price, error)
	// Minimum returns ErrNotFound when there are no prices.
	Minimum(ctx context.Context) (decimal.Decimal, error)
}

// TripRepository stores trips. Status changes are conditional on the trip being active
// and return ErrConflict otherwise.
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	Get(ctx context.Context, id int64) (*models.Trip, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Trip, error)
	ActiveForCard(ctx context.Context, cardID int64) (*models.Trip, error)
	Complete(ctx context.Context, id, destinationID int64, cost decimal.Decimal, at time.Time) (*models.Trip, error)
	Cancel(ctx context.Context, id int64, at time.Time) (*models.Trip, error)
	List(ctx context.Context, filter models.TripFilter) ([]models.Trip, error)
}

// LedgerRepository is the append-only transaction log.
type LedgerRepository interface {
	// Append inserts entry and moves the card balance from entry.PreviousBalance to
	// entry.NewBalance in the same statement batch. When usage is set the card's usage
	// counter and last-used time are bumped too. A card whose stored balance differs from
	// entry.PreviousBalance yields ErrConflict. This is the only balance writer.
	Append(ctx context.Context, entry *models.Transaction, usage bool) error
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	// List returns entries newest first.
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	// History returns every entry of a card oldest first.
	History(ctx context.Context, cardID int64) ([]models.Transaction, error)
	Latest(ctx context.Context, cardID int64) (*models.Transaction, error)
	// Sum adds the absolute amounts of the matching entries.
	Sum(ctx context.Context, filter models.TransactionFilter) (decimal.Decimal, int64, error)
}

// APIKeyRepository stores kiosk API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	Get(ctx context.Context, id int64) (*models.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*models.APIKey, error)
	List(ctx context.Context) ([]models.APIKey, error)
	SetActive(ctx context.Context, id int64, active bool) (*models.APIKey, error)
	TouchUsage(ctx context.Context, id int64, at time.Time) error
}
