package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/events"
	"transitkiosk/backend/services/transit-service/internal/metrics"
	"transitkiosk/backend/services/transit-service/internal/models"
	redisstore "transitkiosk/backend/services/transit-service/internal/redis"
	"transitkiosk/backend/services/transit-service/internal/repository/memory"
)

type testEnv struct {
	store    *memory.Store
	metrics  *metrics.Metrics
	prices   *PriceTable
	ledger   *Ledger
	cards    *CardService
	trips    *TripLedger
	stations *StationService
	events   *recordingPublisher
	cache    *fakeCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	m := metrics.New()
	env := &testEnv{
		store:   store,
		metrics: m,
		events:  &recordingPublisher{},
		cache:   newFakeCache(),
	}
	env.prices = NewPriceTable(store, logger)
	env.ledger = NewLedger(store, logger)
	env.cards = NewCardService(store, env.ledger, env.cache, m, logger)
	env.trips = NewTripLedger(store, env.prices, env.cards, env.cache, env.events, m, logger)
	env.stations = NewStationService(store, logger)
	return env
}

func (e *testEnv) station(t *testing.T, name string) *models.Station {
	t.Helper()
	st, err := e.stations.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create station %q: %v", name, err)
	}
	return st
}

func (e *testEnv) price(t *testing.T, a, b int64, amount string) *models.Price {
	t.Helper()
	p, err := e.prices.Create(context.Background(), a, b, dec(amount))
	if err != nil {
		t.Fatalf("create price %d-%d: %v", a, b, err)
	}
	return p
}

func (e *testEnv) card(t *testing.T, balance string) *models.Card {
	t.Helper()
	c, err := e.cards.Create(context.Background(), dec(balance), "")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	return c
}

func (e *testEnv) balance(t *testing.T, cardID int64) decimal.Decimal {
	t.Helper()
	c, err := e.cards.Get(context.Background(), cardID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	return c.Balance
}

func (e *testEnv) assertConsistent(t *testing.T, cardID int64) {
	t.Helper()
	rec, err := e.ledger.Reconcile(context.Background(), cardID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rec.Consistent {
		t.Fatalf("ledger inconsistent: %v", rec.Problems)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("expected %s, got %s", want, got.StringFixed(2))
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TripEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.TripEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeCache struct {
	mu    sync.Mutex
	trips map[int64]redisstore.ActiveTrip
}

func newFakeCache() *fakeCache {
	return &fakeCache{trips: make(map[int64]redisstore.ActiveTrip)}
}

func (c *fakeCache) Save(_ context.Context, trip models.Trip) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips[trip.CardID] = redisstore.ActiveTrip{TripID: trip.ID, CardID: trip.CardID, SourceStationID: trip.SourceStationID, StartedAt: trip.StartedAt}
	return nil
}

func (c *fakeCache) Get(_ context.Context, cardID int64) (*redisstore.ActiveTrip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.trips[cardID]
	if !ok {
		return nil, redisstore.ErrMiss
	}
	return &at, nil
}

func (c *fakeCache) Delete(_ context.Context, cardID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.trips, cardID)
	return nil
}

func (c *fakeCache) has(cardID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.trips[cardID]
	return ok
}
