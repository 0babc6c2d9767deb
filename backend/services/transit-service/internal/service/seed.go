package service

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// DefaultStations is the starter network created on an empty catalog.
var DefaultStations = []string{
	"Central Station",
	"Union Square",
	"Airport Terminal",
	"Downtown",
	"University",
	"Stadium",
	"Harbor Point",
	"Tech Center",
}

// defaultFares are assigned to station pairs in id order, cycling when exhausted.
var defaultFares = []string{
	"3.25", "4.50", "2.75", "5.00", "3.75", "4.25",
	"3.50", "4.00", "2.50", "5.50", "3.00", "4.75",
	"3.25", "2.25", "4.50", "3.75", "5.25", "2.75",
	"4.00", "3.50", "4.25", "2.50", "5.00", "3.25",
	"4.75", "3.75", "2.25",
}

// SeedResult reports what SeedDefaults created.
type SeedResult struct {
	Stations int
	Prices   int
}

// Seeder loads the default network into empty tables.
type Seeder struct {
	store  repository.Store
	logger *zap.Logger
}

// NewSeeder builds Seeder.
func NewSeeder(store repository.Store, logger *zap.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// SeedDefaults creates the default stations when there are none, then prices every station
// pair when the price table is empty. Non-empty tables are left alone.
func (s *Seeder) SeedDefaults(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		stations, err := tx.Stations().List(ctx)
		if err != nil {
			return err
		}
		if len(stations) == 0 {
			for _, name := range DefaultStations {
				station := &models.Station{Name: name}
				if err := tx.Stations().Create(ctx, station); err != nil {
					return fmt.Errorf("seed station %q: %w", name, err)
				}
				stations = append(stations, *station)
				result.Stations++
			}
		}

		existing, err := tx.Prices().List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		ids := make([]int64, len(stations))
		for i, st := range stations {
			ids[i] = st.ID
		}
		slices.Sort(ids)

		n := 0
		for i := range ids {
			for _, other := range ids[i+1:] {
				price := &models.Price{
					StationAID: ids[i],
					StationBID: other,
					Amount:     money.MustParse(defaultFares[n%len(defaultFares)]),
				}
				if err := tx.Prices().Create(ctx, price); err != nil {
					return fmt.Errorf("seed price %d-%d: %w", ids[i], other, err)
				}
				n++
			}
		}
		result.Prices = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("seed applied", zap.Int("stations", result.Stations), zap.Int("prices", result.Prices))
	return result, nil
}
