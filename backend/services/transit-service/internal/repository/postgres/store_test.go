package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/db"
	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
	"transitkiosk/backend/services/transit-service/internal/repository/postgres"
	"transitkiosk/backend/services/transit-service/internal/service"
)

func startPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("transit_test"),
		tcpostgres.WithUsername("transit"),
		tcpostgres.WithPassword("transit"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	sqlDB, err := db.NewPostgres(ctx, dsn, 20)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run must be a no-op.
	if err := db.Migrate(ctx, sqlDB); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	store := postgres.NewStore(sqlDB)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()
	logger := zap.NewNop()

	prices := service.NewPriceTable(store, logger)
	ledger := service.NewLedger(store, logger)
	cards := service.NewCardService(store, ledger, nil, nil, logger)
	trips := service.NewTripLedger(store, prices, cards, nil, nil, nil, logger)
	stations := service.NewStationService(store, logger)

	a, err := stations.Create(ctx, "Central Station")
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	b, err := stations.Create(ctx, "Union Square")
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	if _, err := prices.Create(ctx, b.ID, a.ID, decimal.RequireFromString("3.25")); err != nil {
		t.Fatalf("create price: %v", err)
	}

	t.Run("trip round trip", func(t *testing.T) {
		card, err := cards.Create(ctx, decimal.RequireFromString("10"), "PG-1")
		if err != nil {
			t.Fatalf("create card: %v", err)
		}
		trip, err := trips.TapIn(ctx, "PG-1", a.ID)
		if err != nil {
			t.Fatalf("tap in: %v", err)
		}
		done, err := trips.TapOut(ctx, trip.ID, b.ID, nil)
		if err != nil {
			t.Fatalf("tap out: %v", err)
		}
		if done.Status != models.TripCompleted || !done.Cost.Equal(decimal.RequireFromString("3.25")) {
			t.Fatalf("unexpected trip %+v", done)
		}
		rec, err := ledger.Reconcile(ctx, card.ID)
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if !rec.Consistent || !rec.Balance.Equal(decimal.RequireFromString("6.75")) {
			t.Fatalf("unexpected reconciliation %+v", rec)
		}
	})

	t.Run("duplicate external id", func(t *testing.T) {
		if _, err := cards.Create(ctx, decimal.Zero, "PG-DUP"); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := cards.Create(ctx, decimal.Zero, "PG-DUP")
		if !errors.Is(err, service.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("stale append conflicts", func(t *testing.T) {
		card, err := cards.Create(ctx, decimal.RequireFromString("5"), "PG-STALE")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = store.WithinTx(ctx, func(tx repository.Repositories) error {
			return tx.Ledger().Append(ctx, &models.Transaction{
				CardID:          card.ID,
				Amount:          decimal.RequireFromString("1"),
				PreviousBalance: decimal.RequireFromString("4"),
				NewBalance:      decimal.RequireFromString("5"),
				CreatedAt:       time.Now().UTC(),
			}, false)
		})
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("concurrent tap-ins keep one active trip", func(t *testing.T) {
		card, err := cards.Create(ctx, decimal.RequireFromString("20"), "PG-RACE")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := trips.TapIn(ctx, "PG-RACE", a.ID); err != nil {
					t.Errorf("tap in: %v", err)
				}
			}()
		}
		wg.Wait()

		list, err := trips.List(ctx, models.TripFilter{CardID: card.ID, Status: models.TripActive})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected one active trip, got %d", len(list))
		}
	})

	t.Run("station in use", func(t *testing.T) {
		if err := stations.Delete(ctx, a.ID); !errors.Is(err, service.ErrStationInUse) {
			t.Fatalf("expected ErrStationInUse, got %v", err)
		}
	})
}
