package service

import (
	"context"
	"errors"
	"testing"
)

func TestStationCatalog(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	union := env.station(t, "Union Square")
	env.station(t, "Airport Terminal")

	if _, err := env.stations.Create(ctx, "Union Square"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := env.stations.Create(ctx, " "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	list, _ := env.stations.List(ctx)
	if len(list) != 2 || list[0].Name != "Airport Terminal" {
		t.Fatalf("expected name ordering, got %+v", list)
	}

	renamed, err := env.stations.Rename(ctx, union.ID, "Union Sq")
	if err != nil || renamed.Name != "Union Sq" {
		t.Fatalf("rename: %+v (%v)", renamed, err)
	}
	if _, err := env.stations.Rename(ctx, union.ID, "Airport Terminal"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := env.stations.Rename(ctx, 99, "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteStationInUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "A")
	b := env.station(t, "B")
	c := env.station(t, "C")
	d := env.station(t, "D")
	env.price(t, a.ID, b.ID, "2.00")
	card := env.card(t, "5.00")
	if _, err := env.trips.TapIn(ctx, card.ExternalID, c.ID); err != nil {
		t.Fatalf("tap in: %v", err)
	}

	for _, id := range []int64{a.ID, b.ID, c.ID} {
		if err := env.stations.Delete(ctx, id); !errors.Is(err, ErrStationInUse) {
			t.Fatalf("delete station %d: expected ErrStationInUse, got %v", id, err)
		}
	}
	if err := env.stations.Delete(ctx, d.ID); err != nil {
		t.Fatalf("delete unused station: %v", err)
	}
	if err := env.stations.Delete(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStationTrips(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "A")
	b := env.station(t, "B")
	env.price(t, a.ID, b.ID, "2.00")
	card := env.card(t, "5.00")

	trip, _ := env.trips.TapIn(ctx, card.ExternalID, a.ID)
	if _, err := env.trips.TapOut(ctx, trip.ID, b.ID, nil); err != nil {
		t.Fatalf("tap out: %v", err)
	}

	from, _ := env.stations.Trips(ctx, a.ID, true)
	to, _ := env.stations.Trips(ctx, a.ID, false)
	if len(from) != 1 || len(to) != 0 {
		t.Fatalf("station a: %d as source, %d as destination", len(from), len(to))
	}
	to, _ = env.stations.Trips(ctx, b.ID, false)
	if len(to) != 1 {
		t.Fatalf("station b: expected 1 arrival, got %d", len(to))
	}
}
