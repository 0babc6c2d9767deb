package app

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	libredis "transitkiosk/backend/libs/redis"
	"transitkiosk/backend/services/transit-service/internal/config"
	"transitkiosk/backend/services/transit-service/internal/events"
	httpserver "transitkiosk/backend/services/transit-service/internal/http"
	"transitkiosk/backend/services/transit-service/internal/http/handlers"
	"transitkiosk/backend/services/transit-service/internal/http/middleware"
	"transitkiosk/backend/services/transit-service/internal/metrics"
	"transitkiosk/backend/services/transit-service/internal/password"
	redisstore "transitkiosk/backend/services/transit-service/internal/redis"
	"transitkiosk/backend/services/transit-service/internal/repository"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// App wires transit-service dependencies.
type App struct {
	server      *httpserver.Server
	store       repository.Store
	redisClient *redis.Client
	hub         *events.Hub
	bus         *redisstore.EventBus
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{store: store, logger: logger}
	m := metrics.New()
	a.hub = events.NewHub(cfg.PingInterval(), cfg.WriteTimeout(), logger, m)
	a.hub.AllowOrigins(cfg.WebSocket.AllowedOrigins)

	var (
		cache     service.ActiveTripCache
		publisher events.Publisher = a.hub
	)
	if cfg.RedisEnabled() {
		a.redisClient, err = libredis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		cache = redisstore.NewActiveTripStore(a.redisClient, cfg.ActiveTripTTL())
		a.bus = redisstore.NewEventBus(a.redisClient, cfg.Redis.EventsChannel, logger)
		publisher = a.bus
	}

	svc := NewServices(store, cache, publisher, m, logger)
	if cfg.Seed.Defaults {
		res, err := svc.Seeder.SeedDefaults(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("default network seeded", zap.Int("stations", res.Stations), zap.Int("prices", res.Prices))
	}

	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.JWTExpiration())
	adminAuth := service.NewAdminAuth(cfg.Auth.AdminUser, cfg.Auth.AdminPasswordHash, password.NewBcryptHasher(bcrypt.DefaultCost), tokens, logger)
	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("admin password hash not configured; admin login disabled")
	}

	deps := httpserver.RouterDeps{
		Cards:        handlers.NewCardsHandlers(svc.Cards, svc.Ledger, svc.Trips, logger),
		Trips:        handlers.NewTripsHandlers(svc.Trips, logger),
		Transactions: handlers.NewTransactionsHandlers(svc.Ledger, logger),
		Stations:     handlers.NewStationsHandlers(svc.Stations, svc.Ledger, svc.Prices, logger),
		Pricing:      handlers.NewPricingHandlers(svc.Prices, logger),
		Admin:        handlers.NewAdminHandlers(adminAuth, svc.APIKeys, logger),
		Health:       handlers.NewHealthHandler(store, logger),
		Metrics:      m,
		TripFeed:     a.hub.HandleWS,
		Logger:       logger,
		AdminAuth:    middleware.AdminAuth(adminAuth),
	}
	if cfg.Auth.RequireAPIKey {
		deps.KioskAuth = middleware.APIKeyAuth(svc.APIKeys, logger)
	}

	router := httpserver.NewRouter(deps)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger, middleware.RecoveryMiddleware(logger))
	return a, nil
}

// Run starts the HTTP server and the trip feed until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	if a.bus != nil {
		g.Go(func() error {
			err := a.bus.Forward(ctx, a.hub)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
}
