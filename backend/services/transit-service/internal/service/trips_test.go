package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"transitkiosk/backend/services/transit-service/internal/events"
	"transitkiosk/backend/services/transit-service/internal/models"
)

func TestTapInTapOutDebitsFare(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	env.price(t, a.ID, b.ID, "3.25")
	card := env.card(t, "10.00")

	trip, err := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if err != nil {
		t.Fatalf("tap in: %v", err)
	}
	if trip.Status != models.TripActive || trip.SourceStationID != a.ID {
		t.Fatalf("unexpected trip %+v", trip)
	}
	assertAmount(t, trip.Cost, "0")

	done, err := env.trips.TapOut(ctx, trip.ID, b.ID, nil)
	if err != nil {
		t.Fatalf("tap out: %v", err)
	}
	if done.Status != models.TripCompleted || done.DestinationStationID == nil || *done.DestinationStationID != b.ID {
		t.Fatalf("unexpected completed trip %+v", done)
	}
	assertAmount(t, done.Cost, "3.25")
	assertAmount(t, env.balance(t, card.ID), "6.75")

	debits, err := env.ledger.DebitsForCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("debits: %v", err)
	}
	if len(debits) != 1 {
		t.Fatalf("expected one debit, got %d", len(debits))
	}
	assertAmount(t, debits[0].Amount, "-3.25")
	assertAmount(t, debits[0].PreviousBalance, "10.00")
	assertAmount(t, debits[0].NewBalance, "6.75")
	if debits[0].StationID == nil || *debits[0].StationID != b.ID {
		t.Fatalf("debit should be booked at destination, got %v", debits[0].StationID)
	}

	updated, _ := env.cards.Get(ctx, card.ID)
	if updated.UsageCount != 1 || updated.LastUsedAt == nil {
		t.Fatalf("usage not recorded: %+v", updated)
	}
	if env.cache.has(card.ID) {
		t.Fatalf("active trip cache should be cleared after tap out")
	}
	got := env.events.types()
	if len(got) != 2 || got[0] != events.TripStarted || got[1] != events.TripCompleted {
		t.Fatalf("unexpected events %v", got)
	}
	env.assertConsistent(t, card.ID)
}

func TestTapOutIsDirectionIndependent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	env.price(t, a.ID, b.ID, "4.50")
	card := env.card(t, "10.00")

	trip, err := env.trips.TapIn(ctx, card.ExternalID, b.ID)
	if err != nil {
		t.Fatalf("tap in: %v", err)
	}
	done, err := env.trips.TapOut(ctx, trip.ID, a.ID, nil)
	if err != nil {
		t.Fatalf("tap out: %v", err)
	}
	assertAmount(t, done.Cost, "4.50")
}

func TestTapInBelowMinimumFare(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	c := env.station(t, "Downtown")
	env.price(t, a.ID, b.ID, "3.25")
	env.price(t, b.ID, c.ID, "2.25")
	card := env.card(t, "1.00")

	_, err := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	trips, _ := env.cards.Trips(ctx, card.ID)
	if len(trips) != 0 {
		t.Fatalf("no trip should exist, got %d", len(trips))
	}
	if len(env.events.types()) != 0 {
		t.Fatalf("rejected tap in must not publish")
	}
}

func TestTapInWithoutPricingSkipsGuard(t *testing.T) {
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	card := env.card(t, "0")

	if _, err := env.trips.TapIn(context.Background(), card.ExternalID, a.ID); err != nil {
		t.Fatalf("tap in with empty price table: %v", err)
	}
}

func TestTapInGuards(t *testing.T) {
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	card := env.card(t, "5.00")

	tests := []struct {
		name    string
		card    string
		station int64
		want    error
	}{
		{name: "unknown card", card: "missing", station: a.ID, want: ErrNotFound},
		{name: "blank card", card: "  ", station: a.ID, want: ErrInvalidArgument},
		{name: "unknown station", card: card.ExternalID, station: 999, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.trips.TapIn(context.Background(), tt.card, tt.station)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRepeatedTapInCancelsPreviousTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	card := env.card(t, "10.00")

	first, err := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if err != nil {
		t.Fatalf("first tap in: %v", err)
	}
	second, err := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if err != nil {
		t.Fatalf("second tap in: %v", err)
	}

	prev, err := env.trips.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if prev.Status != models.TripCancelled || prev.CompletedAt == nil {
		t.Fatalf("first trip should be cancelled, got %+v", prev)
	}
	active, err := env.trips.List(ctx, models.TripFilter{CardID: card.ID, Status: models.TripActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("expected second trip as sole active trip, got %+v", active)
	}
	assertAmount(t, env.balance(t, card.ID), "10.00")

	env.events.mu.Lock()
	cancelled := env.events.events[1]
	env.events.mu.Unlock()
	if cancelled.Type != events.TripCancelled || cancelled.Reason != reasonDuplicateTap {
		t.Fatalf("expected duplicate tap cancellation event, got %+v", cancelled)
	}
}

func TestTapInElsewhereAbandonsTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	card := env.card(t, "10.00")

	first, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if _, err := env.trips.TapIn(ctx, card.ExternalID, b.ID); err != nil {
		t.Fatalf("tap in elsewhere: %v", err)
	}
	prev, _ := env.trips.Get(ctx, first.ID)
	if prev.Status != models.TripCancelled {
		t.Fatalf("expected abandoned trip to be cancelled, got %s", prev.Status)
	}
	env.events.mu.Lock()
	reason := env.events.events[1].Reason
	env.events.mu.Unlock()
	if reason != reasonAbandoned {
		t.Fatalf("expected reason %q, got %q", reasonAbandoned, reason)
	}
}

func TestConcurrentTapInsLeaveOneActiveTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	env.price(t, a.ID, b.ID, "2.50")
	card := env.card(t, "50.00")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			station := a.ID
			if i%2 == 1 {
				station = b.ID
			}
			if _, err := env.trips.TapIn(ctx, card.ExternalID, station); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("tap in: %v", err)
	}

	active, _ := env.trips.List(ctx, models.TripFilter{CardID: card.ID, Status: models.TripActive})
	if len(active) != 1 {
		t.Fatalf("expected exactly one active trip, got %d", len(active))
	}
	cancelled, _ := env.trips.List(ctx, models.TripFilter{CardID: card.ID, Status: models.TripCancelled})
	if len(cancelled) != 15 {
		t.Fatalf("expected 15 cancelled trips, got %d", len(cancelled))
	}
}

func TestTapOutCompletedTripFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	env.price(t, a.ID, b.ID, "3.25")
	card := env.card(t, "10.00")

	trip, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if _, err := env.trips.TapOut(ctx, trip.ID, b.ID, nil); err != nil {
		t.Fatalf("tap out: %v", err)
	}
	_, err := env.trips.TapOut(ctx, trip.ID, b.ID, nil)
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	assertAmount(t, env.balance(t, card.ID), "6.75")
	entries, _ := env.ledger.TransactionsForCard(ctx, card.ID)
	if len(entries) != 2 {
		t.Fatalf("expected seed and one debit, got %d entries", len(entries))
	}
}

func TestTapOutInsufficientFundsLeavesTripActive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	c := env.station(t, "Airport Terminal")
	env.price(t, a.ID, b.ID, "2.00")
	env.price(t, a.ID, c.ID, "9.00")
	card := env.card(t, "3.00")

	trip, err := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if err != nil {
		t.Fatalf("tap in: %v", err)
	}
	_, err = env.trips.TapOut(ctx, trip.ID, c.ID, nil)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	still, _ := env.trips.Get(ctx, trip.ID)
	if still.Status != models.TripActive || still.DestinationStationID != nil {
		t.Fatalf("trip must stay active, got %+v", still)
	}
	assertAmount(t, env.balance(t, card.ID), "3.00")
	debits, _ := env.ledger.DebitsForCard(ctx, card.ID)
	if len(debits) != 0 {
		t.Fatalf("no debit expected, got %d", len(debits))
	}
	env.assertConsistent(t, card.ID)
}

func TestTapOutFareResolution(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	c := env.station(t, "Downtown")
	env.price(t, a.ID, b.ID, "3.25")
	card := env.card(t, "20.00")

	t.Run("override replaces lookup", func(t *testing.T) {
		trip, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
		fare := dec("1.10")
		done, err := env.trips.TapOut(ctx, trip.ID, b.ID, &fare)
		if err != nil {
			t.Fatalf("tap out: %v", err)
		}
		assertAmount(t, done.Cost, "1.10")
	})

	t.Run("non-positive override rejected", func(t *testing.T) {
		trip, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
		fare := dec("0")
		if _, err := env.trips.TapOut(ctx, trip.ID, b.ID, &fare); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := env.trips.Cancel(ctx, trip.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
	})

	t.Run("missing route", func(t *testing.T) {
		trip, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
		if _, err := env.trips.TapOut(ctx, trip.ID, c.ID, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		still, _ := env.trips.Get(ctx, trip.ID)
		if !still.IsActive() {
			t.Fatalf("trip should remain active")
		}
	})

	t.Run("unknown destination", func(t *testing.T) {
		active, _ := env.cards.ActiveTrip(ctx, card.ID)
		if _, err := env.trips.TapOut(ctx, active.ID, 999, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown trip", func(t *testing.T) {
		if _, err := env.trips.TapOut(ctx, 999, b.ID, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	assertAmount(t, env.balance(t, card.ID), "18.90")
	env.assertConsistent(t, card.ID)
}

func TestCancelTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	card := env.card(t, "5.00")

	trip, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	cancelled, err := env.trips.Cancel(ctx, trip.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.TripCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if _, err := env.trips.Cancel(ctx, trip.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive on second cancel, got %v", err)
	}
	if _, err := env.trips.Cancel(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertAmount(t, env.balance(t, card.ID), "5.00")
	active, err := env.cards.ActiveTrip(ctx, card.ID)
	if err != nil || active != nil {
		t.Fatalf("expected no active trip, got %+v (%v)", active, err)
	}
}

func TestCreditAddsFunds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "0")

	updated, err := env.trips.Credit(ctx, card.ID, dec("12.50"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	assertAmount(t, updated.Balance, "12.50")

	for _, amount := range []string{"0", "-1", "1.001"} {
		if _, err := env.trips.Credit(ctx, card.ID, dec(amount)); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("credit %s: expected ErrInvalidArgument, got %v", amount, err)
		}
	}
	if _, err := env.trips.Credit(ctx, 999, dec("1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	env.assertConsistent(t, card.ID)
}

func TestCreditRejectsBalanceAboveMax(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "9999999990.00")

	if _, err := env.trips.Credit(ctx, card.ID, dec("10000000000000")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("oversized credit: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := env.trips.Credit(ctx, card.ID, dec("10.00")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("credit past max balance: expected ErrInvalidArgument, got %v", err)
	}
	updated, err := env.trips.Credit(ctx, card.ID, dec("9.99"))
	if err != nil {
		t.Fatalf("credit up to max: %v", err)
	}
	assertAmount(t, updated.Balance, "9999999999.99")
	assertAmount(t, env.balance(t, card.ID), "9999999999.99")
	env.assertConsistent(t, card.ID)
}

func TestListTripsRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.trips.List(context.Background(), models.TripFilter{Status: "parked"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
