package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// PricingHandlers serves /api/pricing.
type PricingHandlers struct {
	prices *service.PriceTable
	logger *zap.Logger
}

// NewPricingHandlers returns handler.
func NewPricingHandlers(prices *service.PriceTable, logger *zap.Logger) *PricingHandlers {
	return &PricingHandlers{prices: prices, logger: logger}
}

// List handles GET /api/pricing.
func (h *PricingHandlers) List(w http.ResponseWriter, r *http.Request) {
	prices, err := h.prices.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrices(prices))
}

// Create handles POST /api/pricing.
func (h *PricingHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationAID int64         `json:"station_a_id"`
		StationBID int64         `json:"station_b_id"`
		Price      *money.Amount `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.Price == nil {
		writeError(w, http.StatusBadRequest, "price is required", "invalid_argument")
		return
	}
	entry, err := h.prices.Create(r.Context(), req.StationAID, req.StationBID, req.Price.Decimal)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPrice(entry))
}

// Get handles GET /api/pricing/{id}.
func (h *PricingHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	entry, err := h.prices.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrice(entry))
}

// Minimum handles GET /api/pricing/minimum.
func (h *PricingHandlers) Minimum(w http.ResponseWriter, r *http.Request) {
	fare, err := h.prices.MinimumFare(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]money.Amount{"minimum_price": money.NewAmount(fare)})
}

// Stats handles GET /api/pricing/stats.
func (h *PricingHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.prices.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := struct {
		Routes        int            `json:"total_routes"`
		Minimum       money.Amount   `json:"min_price"`
		Maximum       money.Amount   `json:"max_price"`
		Average       money.Amount   `json:"average_price"`
		Cheapest      *priceResponse `json:"cheapest_route"`
		MostExpensive *priceResponse `json:"most_expensive_route"`
	}{
		Routes:  stats.Routes,
		Minimum: money.NewAmount(stats.Minimum),
		Maximum: money.NewAmount(stats.Maximum),
		Average: money.NewAmount(stats.Average),
	}
	if stats.Cheapest != nil {
		cheapest, dearest := toPrice(stats.Cheapest), toPrice(stats.MostExpensive)
		resp.Cheapest, resp.MostExpensive = &cheapest, &dearest
	}
	writeJSON(w, http.StatusOK, resp)
}

// Between handles GET /api/pricing/between/{a}/{b}.
func (h *PricingHandlers) Between(w http.ResponseWriter, r *http.Request) {
	a, b, err := stationPair(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	entry, err := h.prices.Between(r.Context(), a, b)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrice(entry))
}

// UpdateBetween handles PUT /api/pricing/between/{a}/{b}. Missing routes are created.
func (h *PricingHandlers) UpdateBetween(w http.ResponseWriter, r *http.Request) {
	a, b, err := stationPair(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req struct {
		Price *money.Amount `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.Price == nil {
		writeError(w, http.StatusBadRequest, "price is required", "invalid_argument")
		return
	}
	entry, created, err := h.prices.Upsert(r.Context(), a, b, req.Price.Decimal)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toPrice(entry))
}

// DeleteBetween handles DELETE /api/pricing/between/{a}/{b}.
func (h *PricingHandlers) DeleteBetween(w http.ResponseWriter, r *http.Request) {
	a, b, err := stationPair(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.prices.Delete(r.Context(), a, b); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func stationPair(r *http.Request) (int64, int64, error) {
	a, err := pathID(r, "a")
	if err != nil {
		return 0, 0, err
	}
	b, err := pathID(r, "b")
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
