package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/http/handlers"
	"transitkiosk/backend/services/transit-service/internal/http/middleware"
	"transitkiosk/backend/services/transit-service/internal/metrics"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Cards        *handlers.CardsHandlers
	Trips        *handlers.TripsHandlers
	Transactions *handlers.TransactionsHandlers
	Stations     *handlers.StationsHandlers
	Pricing      *handlers.PricingHandlers
	Admin        *handlers.AdminHandlers
	Health       http.HandlerFunc
	Metrics      *metrics.Metrics
	TripFeed     http.HandlerFunc
	Logger       *zap.Logger
	AdminAuth    func(http.Handler) http.Handler
	KioskAuth    func(http.Handler) http.Handler
}

// NewRouter wires HTTP routes with middleware. KioskAuth, when set, guards every kiosk
// route; admin key management always requires AdminAuth.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP)
	r.Use(middleware.LoggingMiddleware(deps.Logger, deps.Metrics))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.TripFeed != nil {
		r.Get("/ws/trips", deps.TripFeed)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", deps.Health)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", deps.Admin.Login)
			r.Group(func(r chi.Router) {
				r.Use(deps.AdminAuth)
				r.Post("/api-keys", deps.Admin.CreateKey)
				r.Get("/api-keys", deps.Admin.ListKeys)
				r.Get("/api-keys/{id}", deps.Admin.GetKey)
				r.Post("/api-keys/{id}/activate", deps.Admin.Activate)
				r.Post("/api-keys/{id}/deactivate", deps.Admin.Deactivate)
				r.Get("/api-keys/{id}/usage", deps.Admin.Usage)
			})
		})

		r.Group(func(r chi.Router) {
			if deps.KioskAuth != nil {
				r.Use(deps.KioskAuth)
			}
			cardRoutes(r, deps.Cards)
			tripRoutes(r, deps.Trips)
			stationRoutes(r, deps.Stations)
			pricingRoutes(r, deps.Pricing)
			r.Get("/transactions", deps.Transactions.List)
			r.Get("/transactions/{id}", deps.Transactions.Get)
		})
	})

	return r
}

func cardRoutes(r chi.Router, h *handlers.CardsHandlers) {
	r.Route("/cards", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/uuid/{uuid}", h.GetByUUID)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/add-funds", h.AddFunds)
			r.Post("/use", h.Use)
			r.Get("/transactions", h.Transactions)
			r.Get("/transactions/credits", h.Credits)
			r.Get("/transactions/debits", h.Debits)
			r.Get("/transaction-summary", h.Summary)
			r.Get("/reconcile", h.Reconcile)
			r.Get("/trips", h.Trips)
			r.Get("/active-trip", h.ActiveTrip)
		})
	})
}

func tripRoutes(r chi.Router, h *handlers.TripsHandlers) {
	r.Route("/trips", func(r chi.Router) {
		r.Post("/", h.TapIn)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/complete", h.Complete)
		r.Post("/{id}/cancel", h.Cancel)
	})
}

func stationRoutes(r chi.Router, h *handlers.StationsHandlers) {
	r.Route("/stations", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/trips", h.Trips)
			r.Get("/transactions", h.Transactions)
			r.Get("/revenue", h.Revenue)
			r.Get("/pricing", h.Pricing)
		})
	})
}

func pricingRoutes(r chi.Router, h *handlers.PricingHandlers) {
	r.Route("/pricing", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/minimum", h.Minimum)
		r.Get("/stats", h.Stats)
		r.Get("/between/{a}/{b}", h.Between)
		r.Put("/between/{a}/{b}", h.UpdateBetween)
		r.Delete("/between/{a}/{b}", h.DeleteBetween)
		r.Get("/{id}", h.Get)
	})
}
