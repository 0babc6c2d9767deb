package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/config"
	"transitkiosk/backend/services/transit-service/internal/db"
	"transitkiosk/backend/services/transit-service/internal/events"
	"transitkiosk/backend/services/transit-service/internal/metrics"
	"transitkiosk/backend/services/transit-service/internal/repository"
	"transitkiosk/backend/services/transit-service/internal/repository/memory"
	"transitkiosk/backend/services/transit-service/internal/repository/postgres"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// Services is the domain layer shared by the HTTP server and transitctl.
type Services struct {
	Prices   *service.PriceTable
	Ledger   *service.Ledger
	Cards    *service.CardService
	Trips    *service.TripLedger
	Stations *service.StationService
	APIKeys  *service.APIKeyService
	Seeder   *service.Seeder
}

// NewServices builds the domain services over store. cache, publisher and m may be nil.
func NewServices(store repository.Store, cache service.ActiveTripCache, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *Services {
	prices := service.NewPriceTable(store, logger)
	ledger := service.NewLedger(store, logger)
	cards := service.NewCardService(store, ledger, cache, m, logger)
	return &Services{
		Prices:   prices,
		Ledger:   ledger,
		Cards:    cards,
		Trips:    service.NewTripLedger(store, prices, cards, cache, publisher, m, logger),
		Stations: service.NewStationService(store, logger),
		APIKeys:  service.NewAPIKeyService(store, logger),
		Seeder:   service.NewSeeder(store, logger),
	}
}

// OpenStore opens the configured storage backend. Postgres is migrated first when
// auto-migration is on.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return memory.NewStore(), nil
	case config.DriverPostgres:
		sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx, sqlDB); err != nil {
				sqlDB.Close()
				return nil, err
			}
		}
		return postgres.NewStore(sqlDB), nil
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}
}
