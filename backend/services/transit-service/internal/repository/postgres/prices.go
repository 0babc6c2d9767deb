package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

const priceColumns = `id, station_a_id, station_b_id, price, created_at, updated_at`

// PriceRepository handles the prices table.
type PriceRepository struct {
	q querier
}

// Create inserts a canonical pair. A duplicate pair yields repository.ErrConflict.
func (r *PriceRepository) Create(ctx context.Context, price *models.Price) error {
	const query = `
		INSERT INTO prices (station_a_id, station_b_id, price, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + priceColumns
	row := r.q.QueryRowContext(ctx, query, price.StationAID, price.StationBID, price.Amount)
	return mapError(scanPrice(row, price))
}

// Get fetches a price by id.
func (r *PriceRepository) Get(ctx context.Context, id int64) (*models.Price, error) {
	const query = `SELECT ` + priceColumns + ` FROM prices WHERE id = $1`
	return r.one(ctx, query, id)
}

// GetPair fetches the price of a canonical pair.
func (r *PriceRepository) GetPair(ctx context.Context, a, b int64) (*models.Price, error) {
	const query = `SELECT ` + priceColumns + ` FROM prices WHERE station_a_id = $1 AND station_b_id = $2`
	return r.one(ctx, query, a, b)
}

// UpdateAmount changes the fare of an existing route.
func (r *PriceRepository) UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal) (*models.Price, error) {
	const query = `UPDATE prices SET price = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + priceColumns
	return r.one(ctx, query, id, amount)
}

// Delete removes a route.
func (r *PriceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM prices WHERE id = $1`, id)
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

// List returns every route ordered by pair.
func (r *PriceRepository) List(ctx context.Context) ([]models.Price, error) {
	const query = `SELECT ` + priceColumns + ` FROM prices ORDER BY station_a_id, station_b_id`
	return r.many(ctx, query)
}

// ListForStation returns routes touching the station.
func (r *PriceRepository) ListForStation(ctx context.Context, stationID int64) ([]models.Price, error) {
	const query = `
		SELECT ` + priceColumns + ` FROM prices
		WHERE station_a_id = $1 OR station_b_id = $1
		ORDER BY station_a_id, station_b_id`
	return r.many(ctx, query, stationID)
}

// Minimum returns the cheapest fare.
func (r *PriceRepository) Minimum(ctx context.Context) (decimal.Decimal, error) {
	var lowest decimal.NullDecimal
	if err := r.q.QueryRowContext(ctx, `SELECT MIN(price) FROM prices`).Scan(&lowest); err != nil {
		return decimal.Decimal{}, err
	}
	if !lowest.Valid {
		return decimal.Decimal{}, repository.ErrNotFound
	}
	return lowest.Decimal, nil
}

func (r *PriceRepository) one(ctx context.Context, query string, args ...any) (*models.Price, error) {
	var p models.Price
	if err := scanPrice(r.q.QueryRowContext(ctx, query, args...), &p); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *PriceRepository) many(ctx context.Context, query string, args ...any) ([]models.Price, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []models.Price
	for rows.Next() {
		var p models.Price
		if err := scanPrice(rows, &p); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func scanPrice(row rowScanner, p *models.Price) error {
	return row.Scan(&p.ID, &p.StationAID, &p.StationBID, &p.Amount, &p.CreatedAt, &p.UpdatedAt)
}
