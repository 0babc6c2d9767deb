package postgres

import (
	"context"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// StationRepository handles the stations table.
type StationRepository struct {
	q querier
}

// Create inserts a station. Duplicate names yield repository.ErrConflict.
func (r *StationRepository) Create(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO stations (name, created_at)
		VALUES ($1, NOW())
		RETURNING id, created_at
	`
	return mapError(r.q.QueryRowContext(ctx, query, station.Name).Scan(&station.ID, &station.CreatedAt))
}

// Get fetches a station by id.
func (r *StationRepository) Get(ctx context.Context, id int64) (*models.Station, error) {
	const query = `SELECT id, name, created_at FROM stations WHERE id = $1`
	var s models.Station
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// List returns stations ordered by name.
func (r *StationRepository) List(ctx context.Context) ([]models.Station, error) {
	const query = `SELECT id, name, created_at FROM stations ORDER BY name`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// Rename changes the station name.
func (r *StationRepository) Rename(ctx context.Context, id int64, name string) (*models.Station, error) {
	const query = `UPDATE stations SET name = $2 WHERE id = $1 RETURNING id, name, created_at`
	var s models.Station
	if err := r.q.QueryRowContext(ctx, query, id, name).Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// Delete removes the station row. Foreign keys reject referenced stations with ErrConflict.
func (r *StationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM stations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IsReferenced reports whether prices, trips or transactions point at the station.
func (r *StationRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	const query = `
		SELECT EXISTS (SELECT 1 FROM prices WHERE station_a_id = $1 OR station_b_id = $1)
		    OR EXISTS (SELECT 1 FROM trips WHERE source_station_id = $1 OR destination_station_id = $1)
		    OR EXISTS (SELECT 1 FROM transactions WHERE station_id = $1)
	`
	var referenced bool
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&referenced); err != nil {
		return false, err
	}
	return referenced, nil
}
