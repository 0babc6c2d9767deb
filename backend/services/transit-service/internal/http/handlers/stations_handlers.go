package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// StationsHandlers serves /api/stations.
type StationsHandlers struct {
	stations *service.StationService
	ledger   *service.Ledger
	prices   *service.PriceTable
	logger   *zap.Logger
}

// NewStationsHandlers returns handler.
func NewStationsHandlers(stations *service.StationService, ledger *service.Ledger, prices *service.PriceTable, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{stations: stations, ledger: ledger, prices: prices, logger: logger}
}

type stationRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/stations.
func (h *StationsHandlers) List(w http.ResponseWriter, r *http.Request) {
	stations, err := h.stations.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	out := make([]stationResponse, 0, len(stations))
	for i := range stations {
		out = append(out, toStation(&stations[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/stations.
func (h *StationsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	station, err := h.stations.Create(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStation(station))
}

// Get handles GET /api/stations/{id}.
func (h *StationsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	station, err := h.stations.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStation(station))
}

// Update handles PUT /api/stations/{id}.
func (h *StationsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req stationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	station, err := h.stations.Rename(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStation(station))
}

// Delete handles DELETE /api/stations/{id}.
func (h *StationsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.stations.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Trips handles GET /api/stations/{id}/trips?as_source=true|false.
func (h *StationsHandlers) Trips(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	asSource, err := queryBool(r, "as_source", true)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	trips, err := h.stations.Trips(r.Context(), id, asSource)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrips(trips))
}

// Transactions handles GET /api/stations/{id}/transactions.
func (h *StationsHandlers) Transactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	entries, err := h.ledger.TransactionsForStation(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactions(entries))
}

// Revenue handles GET /api/stations/{id}/revenue.
func (h *StationsHandlers) Revenue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	revenue, err := h.ledger.RevenueForStation(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		StationID int64        `json:"station_id"`
		Revenue   money.Amount `json:"revenue"`
		Debits    int64        `json:"transaction_count"`
	}{revenue.StationID, money.NewAmount(revenue.Total), revenue.Debits})
}

// Pricing handles GET /api/stations/{id}/pricing.
func (h *StationsHandlers) Pricing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	prices, err := h.prices.ForStation(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	type route struct {
		priceResponse
		OtherStationID int64 `json:"other_station_id"`
	}
	out := make([]route, 0, len(prices))
	for i := range prices {
		out = append(out, route{priceResponse: toPrice(&prices[i]), OtherStationID: otherStation(prices[i], id)})
	}
	writeJSON(w, http.StatusOK, out)
}

func otherStation(p models.Price, id int64) int64 {
	if p.StationAID == id {
		return p.StationBID
	}
	return p.StationAID
}
