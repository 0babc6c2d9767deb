package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

const tripColumns = `id, card_id, source_station_id, destination_station_id, cost, status, started_at, completed_at`

// TripRepository handles the trips table.
type TripRepository struct {
	q querier
}

// Create inserts an active trip. A second active trip for the card violates
// trips_one_active_per_card and yields repository.ErrConflict.
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	const query = `
		INSERT INTO trips (card_id, source_station_id, cost, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + tripColumns
	row := r.q.QueryRowContext(ctx, query, trip.CardID, trip.SourceStationID, trip.Cost, string(trip.Status), trip.StartedAt)
	return mapError(scanTrip(row, trip))
}

// Get fetches a trip by id.
func (r *TripRepository) Get(ctx context.Context, id int64) (*models.Trip, error) {
	const query = `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	return r.one(ctx, query, id)
}

// GetForUpdate locks the trip row for the rest of the transaction.
func (r *TripRepository) GetForUpdate(ctx context.Context, id int64) (*models.Trip, error) {
	const query = `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`
	return r.one(ctx, query, id)
}

// ActiveForCard returns the card's active trip, if any.
func (r *TripRepository) ActiveForCard(ctx context.Context, cardID int64) (*models.Trip, error) {
	const query = `SELECT ` + tripColumns + ` FROM trips WHERE card_id = $1 AND status = 'active' FOR UPDATE`
	return r.one(ctx, query, cardID)
}

// Complete closes an active trip with its destination and fare.
func (r *TripRepository) Complete(ctx context.Context, id, destinationID int64, cost decimal.Decimal, at time.Time) (*models.Trip, error) {
	const query = `
		UPDATE trips
		SET status = 'completed', destination_station_id = $2, cost = $3, completed_at = $4
		WHERE id = $1 AND status = 'active'
		RETURNING ` + tripColumns
	return r.transition(ctx, query, id, destinationID, cost, at)
}

// Cancel closes an active trip without a fare.
func (r *TripRepository) Cancel(ctx context.Context, id int64, at time.Time) (*models.Trip, error) {
	const query = `
		UPDATE trips
		SET status = 'cancelled', completed_at = $2
		WHERE id = $1 AND status = 'active'
		RETURNING ` + tripColumns
	return r.transition(ctx, query, id, at)
}

// List returns trips newest first.
func (r *TripRepository) List(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	var where whereBuilder
	if filter.CardID != 0 {
		where.add("card_id = $%d", filter.CardID)
	}
	if filter.Status != "" {
		where.add("status = $%d", string(filter.Status))
	}
	if filter.SourceStationID != 0 {
		where.add("source_station_id = $%d", filter.SourceStationID)
	}
	if filter.DestinationStationID != 0 {
		where.add("destination_station_id = $%d", filter.DestinationStationID)
	}
	if !filter.From.IsZero() {
		where.add("started_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		where.add("started_at <= $%d", filter.To)
	}
	query := `SELECT ` + tripColumns + ` FROM trips` + where.clause() + ` ORDER BY started_at DESC, id DESC`
	query += where.limit(filter.Limit)

	rows, err := r.q.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := scanTrip(rows, &t); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (r *TripRepository) transition(ctx context.Context, query string, args ...any) (*models.Trip, error) {
	var t models.Trip
	err := scanTrip(r.q.QueryRowContext(ctx, query, args...), &t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError(err)
	}
	if _, getErr := r.Get(ctx, args[0].(int64)); getErr != nil {
		return nil, getErr
	}
	return nil, repository.ErrConflict
}

func (r *TripRepository) one(ctx context.Context, query string, arg any) (*models.Trip, error) {
	var t models.Trip
	if err := scanTrip(r.q.QueryRowContext(ctx, query, arg), &t); err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func scanTrip(row rowScanner, t *models.Trip) error {
	var (
		status      string
		destination sql.NullInt64
		completedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.CardID, &t.SourceStationID, &destination, &t.Cost, &status, &t.StartedAt, &completedAt); err != nil {
		return err
	}
	t.Status = models.TripStatus(status)
	t.DestinationStationID = nullInt64Ptr(destination)
	t.CompletedAt = nullTimePtr(completedAt)
	t.StartedAt = t.StartedAt.UTC()
	return nil
}
