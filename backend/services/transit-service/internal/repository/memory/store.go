// Package memory is an in-process repository.Store used for local runs and tests. A single
// mutex serializes transactions; a failed transaction restores the snapshot taken when it
// began.
package memory

import (
	"context"
	"sync"
	"time"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// Store keeps all tables in maps guarded by one mutex.
type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newDataset(), now: func() time.Time { return time.Now().UTC() }}
}

// WithinTx runs fn with exclusive access to the data set.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(view{s: s, held: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) Cards() repository.CardRepository       { return view{s: s}.Cards() }
func (s *Store) Stations() repository.StationRepository { return view{s: s}.Stations() }
func (s *Store) Prices() repository.PriceRepository     { return view{s: s}.Prices() }
func (s *Store) Trips() repository.TripRepository       { return view{s: s}.Trips() }
func (s *Store) Ledger() repository.LedgerRepository    { return view{s: s}.Ledger() }
func (s *Store) APIKeys() repository.APIKeyRepository   { return view{s: s}.APIKeys() }

// view binds repositories to the store. held is set inside WithinTx where the mutex is
// already owned.
type view struct {
	s    *Store
	held bool
}

func (v view) acquire() func() {
	if v.held {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v view) Cards() repository.CardRepository       { return cards{v} }
func (v view) Stations() repository.StationRepository { return stations{v} }
func (v view) Prices() repository.PriceRepository     { return prices{v} }
func (v view) Trips() repository.TripRepository       { return trips{v} }
func (v view) Ledger() repository.LedgerRepository    { return ledger{v} }
func (v view) APIKeys() repository.APIKeyRepository   { return apiKeys{v} }

type dataset struct {
	seq          map[string]int64
	cards        map[int64]models.Card
	stations     map[int64]models.Station
	prices       map[int64]models.Price
	trips        map[int64]models.Trip
	transactions []models.Transaction
	apiKeys      map[int64]models.APIKey
}

func newDataset() *dataset {
	return &dataset{
		seq:      make(map[string]int64),
		cards:    make(map[int64]models.Card),
		stations: make(map[int64]models.Station),
		prices:   make(map[int64]models.Price),
		trips:    make(map[int64]models.Trip),
		apiKeys:  make(map[int64]models.APIKey),
	}
}

func (d *dataset) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

// clone copies every table. Model values hold pointers only to immutable timestamps and
// ids, which are replaced rather than mutated, so a shallow copy per row suffices.
func (d *dataset) clone() *dataset {
	out := &dataset{
		seq:          make(map[string]int64, len(d.seq)),
		cards:        make(map[int64]models.Card, len(d.cards)),
		stations:     make(map[int64]models.Station, len(d.stations)),
		prices:       make(map[int64]models.Price, len(d.prices)),
		trips:        make(map[int64]models.Trip, len(d.trips)),
		transactions: append([]models.Transaction(nil), d.transactions...),
		apiKeys:      make(map[int64]models.APIKey, len(d.apiKeys)),
	}
	for k, v := range d.seq {
		out.seq[k] = v
	}
	for k, v := range d.cards {
		out.cards[k] = v
	}
	for k, v := range d.stations {
		out.stations[k] = v
	}
	for k, v := range d.prices {
		out.prices[k] = v
	}
	for k, v := range d.trips {
		out.trips[k] = v
	}
	for k, v := range d.apiKeys {
		out.apiKeys[k] = v
	}
	return out
}
