package app

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/config"
	"transitkiosk/backend/services/transit-service/internal/repository/memory"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.HTTP.Port = "0"
	cfg.Seed.Defaults = true
	return cfg
}

func TestNewSeedsMemoryStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	stations, err := a.store.Stations().List(ctx)
	if err != nil {
		t.Fatalf("list stations: %v", err)
	}
	if len(stations) != 8 {
		t.Fatalf("expected 8 seeded stations, got %d", len(stations))
	}
	if a.bus != nil || a.redisClient != nil {
		t.Fatalf("redis should be disabled without an address")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"
	if _, err := OpenStore(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestServicesShareStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewServices(store, nil, nil, nil, zap.NewNop())
	if _, err := svc.Seeder.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	lowest, err := svc.Prices.MinimumFare(ctx)
	if err != nil {
		t.Fatalf("minimum: %v", err)
	}
	if lowest.StringFixed(2) != "2.25" {
		t.Fatalf("expected 2.25 minimum, got %s", lowest)
	}
}
