package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

type trips struct{ v view }

func (r trips) Create(_ context.Context, trip *models.Trip) error {
	defer r.v.acquire()()
	d := r.v.s.data
	if _, ok := d.cards[trip.CardID]; !ok {
		return repository.ErrConflict
	}
	if _, ok := d.stations[trip.SourceStationID]; !ok {
		return repository.ErrConflict
	}
	if trip.Status == models.TripActive && activeTrip(d, trip.CardID) != nil {
		return repository.ErrConflict
	}
	trip.ID = d.next("trips")
	d.trips[trip.ID] = *trip
	return nil
}

func (r trips) Get(_ context.Context, id int64) (*models.Trip, error) {
	defer r.v.acquire()()
	t, ok := r.v.s.data.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r trips) GetForUpdate(ctx context.Context, id int64) (*models.Trip, error) {
	return r.Get(ctx, id)
}

func (r trips) ActiveForCard(_ context.Context, cardID int64) (*models.Trip, error) {
	defer r.v.acquire()()
	if t := activeTrip(r.v.s.data, cardID); t != nil {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

func (r trips) Complete(_ context.Context, id, destinationID int64, cost decimal.Decimal, at time.Time) (*models.Trip, error) {
	defer r.v.acquire()()
	d := r.v.s.data
	t, ok := d.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !t.IsActive() {
		return nil, repository.ErrConflict
	}
	if _, ok := d.stations[destinationID]; !ok {
		return nil, repository.ErrConflict
	}
	dest := destinationID
	completed := at
	t.Status = models.TripCompleted
	t.DestinationStationID = &dest
	t.Cost = cost
	t.CompletedAt = &completed
	d.trips[id] = t
	return &t, nil
}

func (r trips) Cancel(_ context.Context, id int64, at time.Time) (*models.Trip, error) {
	defer r.v.acquire()()
	d := r.v.s.data
	t, ok := d.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !t.IsActive() {
		return nil, repository.ErrConflict
	}
	cancelled := at
	t.Status = models.TripCancelled
	t.CompletedAt = &cancelled
	d.trips[id] = t
	return &t, nil
}

func (r trips) List(_ context.Context, filter models.TripFilter) ([]models.Trip, error) {
	defer r.v.acquire()()
	var out []models.Trip
	for _, t := range r.v.s.data.trips {
		if matchTrip(t, filter) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, filter.Limit, 0), nil
}

func matchTrip(t models.Trip, f models.TripFilter) bool {
	switch {
	case f.CardID != 0 && t.CardID != f.CardID:
		return false
	case f.Status != "" && t.Status != f.Status:
		return false
	case f.SourceStationID != 0 && t.SourceStationID != f.SourceStationID:
		return false
	case f.DestinationStationID != 0 && (t.DestinationStationID == nil || *t.DestinationStationID != f.DestinationStationID):
		return false
	case !f.From.IsZero() && t.StartedAt.Before(f.From):
		return false
	case !f.To.IsZero() && t.StartedAt.After(f.To):
		return false
	}
	return true
}

func activeTrip(d *dataset, cardID int64) *models.Trip {
	for _, t := range d.trips {
		if t.CardID == cardID && t.IsActive() {
			return &t
		}
	}
	return nil
}
