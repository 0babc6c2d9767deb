package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// PriceTable resolves direction-independent fares between stations.
type PriceTable struct {
	store  repository.Store
	logger *zap.Logger
}

// PriceStats summarizes the price table.
type PriceStats struct {
	Routes        int
	Minimum       decimal.Decimal
	Maximum       decimal.Decimal
	Average       decimal.Decimal
	Cheapest      *models.Price
	MostExpensive *models.Price
}

// NewPriceTable builds PriceTable.
func NewPriceTable(store repository.Store, logger *zap.Logger) *PriceTable {
	return &PriceTable{store: store, logger: logger}
}

// Price returns the fare between a and b in either order.
func (p *PriceTable) Price(ctx context.Context, a, b int64) (decimal.Decimal, error) {
	entry, err := p.between(ctx, p.store, a, b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return entry.Amount, nil
}

// Between returns the stored route between a and b in either order.
func (p *PriceTable) Between(ctx context.Context, a, b int64) (*models.Price, error) {
	if err := p.requireStations(ctx, p.store, a, b); err != nil {
		return nil, err
	}
	return p.between(ctx, p.store, a, b)
}

func (p *PriceTable) between(ctx context.Context, repos repository.Repositories, a, b int64) (*models.Price, error) {
	lo, hi := models.CanonicalPair(a, b)
	entry, err := repos.Prices().GetPair(ctx, lo, hi)
	if err != nil {
		return nil, notFound(err, "price between stations %d and %d", lo, hi)
	}
	return entry, nil
}

// MinimumFare returns the cheapest fare in the table.
func (p *PriceTable) MinimumFare(ctx context.Context) (decimal.Decimal, error) {
	return p.minimumFare(ctx, p.store)
}

func (p *PriceTable) minimumFare(ctx context.Context, repos repository.Repositories) (decimal.Decimal, error) {
	fare, err := repos.Prices().Minimum(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Decimal{}, ErrNoPricingData
	}
	return fare, err
}

// Create adds a route. A pair that already exists in either order yields ErrAlreadyExists.
func (p *PriceTable) Create(ctx context.Context, a, b int64, amount decimal.Decimal) (*models.Price, error) {
	if err := validateRoute(a, b, amount); err != nil {
		return nil, err
	}
	var created *models.Price
	err := p.store.WithinTx(ctx, func(tx repository.Repositories) error {
		var err error
		created, err = p.create(ctx, tx, a, b, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("price created",
		zap.Int64("price_id", created.ID),
		zap.Int64("station_a_id", created.StationAID),
		zap.Int64("station_b_id", created.StationBID),
		zap.String("amount", money.Format(created.Amount)))
	return created, nil
}

// Update changes the fare of an existing route.
func (p *PriceTable) Update(ctx context.Context, a, b int64, amount decimal.Decimal) (*models.Price, error) {
	if err := validateRoute(a, b, amount); err != nil {
		return nil, err
	}
	var updated *models.Price
	err := p.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if err := p.requireStations(ctx, tx, a, b); err != nil {
			return err
		}
		entry, err := p.between(ctx, tx, a, b)
		if err != nil {
			return err
		}
		updated, err = tx.Prices().UpdateAmount(ctx, entry.ID, amount)
		return notFound(err, "price %d", entry.ID)
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("price updated", zap.Int64("price_id", updated.ID), zap.String("amount", money.Format(updated.Amount)))
	return updated, nil
}

// Upsert updates the route if present, otherwise creates it. created reports which path ran.
func (p *PriceTable) Upsert(ctx context.Context, a, b int64, amount decimal.Decimal) (entry *models.Price, created bool, err error) {
	if err := validateRoute(a, b, amount); err != nil {
		return nil, false, err
	}
	err = p.store.WithinTx(ctx, func(tx repository.Repositories) error {
		existing, err := p.between(ctx, tx, a, b)
		switch {
		case err == nil:
			entry, err = tx.Prices().UpdateAmount(ctx, existing.ID, amount)
			return err
		case errors.Is(err, ErrNotFound):
			created = true
			entry, err = p.create(ctx, tx, a, b, amount)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}
	return entry, created, nil
}

func (p *PriceTable) create(ctx context.Context, tx repository.Repositories, a, b int64, amount decimal.Decimal) (*models.Price, error) {
	if err := p.requireStations(ctx, tx, a, b); err != nil {
		return nil, err
	}
	lo, hi := models.CanonicalPair(a, b)
	entry := &models.Price{StationAID: lo, StationBID: hi, Amount: amount}
	if err := tx.Prices().Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("price between stations %d and %d: %w", lo, hi, ErrAlreadyExists)
		}
		return nil, err
	}
	return entry, nil
}

// Delete removes the route between a and b.
func (p *PriceTable) Delete(ctx context.Context, a, b int64) error {
	return p.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if err := p.requireStations(ctx, tx, a, b); err != nil {
			return err
		}
		entry, err := p.between(ctx, tx, a, b)
		if err != nil {
			return err
		}
		if err := tx.Prices().Delete(ctx, entry.ID); err != nil {
			return notFound(err, "price %d", entry.ID)
		}
		p.logger.Info("price deleted", zap.Int64("price_id", entry.ID))
		return nil
	})
}

// Get returns a route by id.
func (p *PriceTable) Get(ctx context.Context, id int64) (*models.Price, error) {
	entry, err := p.store.Prices().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "price %d", id)
	}
	return entry, nil
}

// List returns every route.
func (p *PriceTable) List(ctx context.Context) ([]models.Price, error) {
	return p.store.Prices().List(ctx)
}

// ForStation returns the routes that start or end at stationID.
func (p *PriceTable) ForStation(ctx context.Context, stationID int64) ([]models.Price, error) {
	if _, err := p.store.Stations().Get(ctx, stationID); err != nil {
		return nil, notFound(err, "station %d", stationID)
	}
	return p.store.Prices().ListForStation(ctx, stationID)
}

// Stats aggregates the table. An empty table yields zero values.
func (p *PriceTable) Stats(ctx context.Context) (*PriceStats, error) {
	entries, err := p.store.Prices().List(ctx)
	if err != nil {
		return nil, err
	}
	stats := &PriceStats{Minimum: money.Zero, Maximum: money.Zero, Average: money.Zero}
	if len(entries) == 0 {
		return stats, nil
	}

	total := decimal.Zero
	for i := range entries {
		e := &entries[i]
		total = total.Add(e.Amount)
		if stats.Cheapest == nil || e.Amount.LessThan(stats.Cheapest.Amount) {
			stats.Cheapest = e
		}
		if stats.MostExpensive == nil || e.Amount.GreaterThan(stats.MostExpensive.Amount) {
			stats.MostExpensive = e
		}
	}
	stats.Routes = len(entries)
	stats.Minimum = stats.Cheapest.Amount
	stats.Maximum = stats.MostExpensive.Amount
	stats.Average = total.Div(decimal.NewFromInt(int64(len(entries)))).Round(money.Scale)
	return stats, nil
}

func (p *PriceTable) requireStations(ctx context.Context, repos repository.Repositories, ids ...int64) error {
	for _, id := range ids {
		if _, err := repos.Stations().Get(ctx, id); err != nil {
			return notFound(err, "station %d", id)
		}
	}
	return nil
}

func validateRoute(a, b int64, amount decimal.Decimal) error {
	if a == b {
		return invalid("price requires two different stations")
	}
	return positiveAmount("price", amount)
}
