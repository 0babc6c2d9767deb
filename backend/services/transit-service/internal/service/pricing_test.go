package service

import (
	"context"
	"errors"
	"testing"
)

func TestPriceIsSymmetric(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ids := make([]int64, 0, 4)
	for _, name := range []string{"A", "B", "C", "D"} {
		ids = append(ids, env.station(t, name).ID)
	}
	env.price(t, ids[2], ids[0], "3.25")
	env.price(t, ids[1], ids[3], "4.75")
	env.price(t, ids[0], ids[3], "2.50")

	for _, a := range ids {
		for _, b := range ids {
			ab, errAB := env.prices.Price(ctx, a, b)
			ba, errBA := env.prices.Price(ctx, b, a)
			if errors.Is(errAB, ErrNotFound) != errors.Is(errBA, ErrNotFound) {
				t.Fatalf("lookup %d-%d disagrees on existence: %v / %v", a, b, errAB, errBA)
			}
			if errAB == nil && !ab.Equal(ba) {
				t.Fatalf("price %d-%d = %s but %d-%d = %s", a, b, ab, b, a, ba)
			}
		}
	}

	got, err := env.prices.Price(ctx, ids[0], ids[2])
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	assertAmount(t, got, "3.25")
}

func TestPriceCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	a := env.station(t, "A").ID
	b := env.station(t, "B").ID
	env.price(t, a, b, "3.00")

	tests := []struct {
		name   string
		a, b   int64
		amount string
		want   error
	}{
		{name: "duplicate reversed pair", a: b, b: a, amount: "2.00", want: ErrAlreadyExists},
		{name: "same station", a: a, b: a, amount: "2.00", want: ErrInvalidArgument},
		{name: "zero price", a: a, b: b, amount: "0", want: ErrInvalidArgument},
		{name: "negative price", a: a, b: b, amount: "-1.00", want: ErrInvalidArgument},
		{name: "too precise", a: a, b: b, amount: "1.005", want: ErrInvalidArgument},
		{name: "unknown station", a: a, b: 99, amount: "2.00", want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.prices.Create(context.Background(), tt.a, tt.b, dec(tt.amount))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPriceUpdateUpsertDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "A").ID
	b := env.station(t, "B").ID
	c := env.station(t, "C").ID

	if _, err := env.prices.Update(ctx, a, b, dec("2.00")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing route: expected ErrNotFound, got %v", err)
	}

	entry, created, err := env.prices.Upsert(ctx, b, a, dec("2.00"))
	if err != nil || !created {
		t.Fatalf("upsert create: created=%v err=%v", created, err)
	}
	if entry.StationAID != a || entry.StationBID != b {
		t.Fatalf("route not stored canonically: %+v", entry)
	}

	entry, created, err = env.prices.Upsert(ctx, a, b, dec("2.40"))
	if err != nil || created {
		t.Fatalf("upsert update: created=%v err=%v", created, err)
	}
	assertAmount(t, entry.Amount, "2.40")

	updated, err := env.prices.Update(ctx, b, a, dec("2.60"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != entry.ID {
		t.Fatalf("update changed route id %d -> %d", entry.ID, updated.ID)
	}

	env.price(t, a, c, "5.00")
	forA, err := env.prices.ForStation(ctx, a)
	if err != nil || len(forA) != 2 {
		t.Fatalf("expected 2 routes for station a, got %d (%v)", len(forA), err)
	}

	if err := env.prices.Delete(ctx, b, a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.prices.Price(ctx, a, b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted route still resolves: %v", err)
	}
	if err := env.prices.Delete(ctx, a, b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMinimumFareAndStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.prices.MinimumFare(ctx); !errors.Is(err, ErrNoPricingData) {
		t.Fatalf("expected ErrNoPricingData, got %v", err)
	}
	empty, err := env.prices.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.Routes != 0 || empty.Cheapest != nil {
		t.Fatalf("unexpected stats for empty table: %+v", empty)
	}

	a := env.station(t, "A").ID
	b := env.station(t, "B").ID
	c := env.station(t, "C").ID
	env.price(t, a, b, "3.25")
	cheap := env.price(t, a, c, "2.25")
	dear := env.price(t, b, c, "4.00")

	minimum, err := env.prices.MinimumFare(ctx)
	if err != nil {
		t.Fatalf("minimum: %v", err)
	}
	assertAmount(t, minimum, "2.25")

	stats, err := env.prices.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Routes != 3 {
		t.Fatalf("expected 3 routes, got %d", stats.Routes)
	}
	assertAmount(t, stats.Minimum, "2.25")
	assertAmount(t, stats.Maximum, "4.00")
	assertAmount(t, stats.Average, "3.17")
	if stats.Cheapest.ID != cheap.ID || stats.MostExpensive.ID != dear.ID {
		t.Fatalf("unexpected extremes %+v / %+v", stats.Cheapest, stats.MostExpensive)
	}
}
