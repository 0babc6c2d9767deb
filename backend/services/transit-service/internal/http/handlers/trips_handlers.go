package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// TripsHandlers serves /api/trips.
type TripsHandlers struct {
	trips  *service.TripLedger
	logger *zap.Logger
}

// NewTripsHandlers returns handler.
func NewTripsHandlers(trips *service.TripLedger, logger *zap.Logger) *TripsHandlers {
	return &TripsHandlers{trips: trips, logger: logger}
}

// TapIn handles POST /api/trips.
func (h *TripsHandlers) TapIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardUUID        string `json:"card_uuid"`
		SourceStationID int64  `json:"source_station_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.CardUUID) == "" || req.SourceStationID <= 0 {
		writeError(w, http.StatusBadRequest, "card_uuid and source_station_id are required", "invalid_argument")
		return
	}
	trip, err := h.trips.TapIn(r.Context(), req.CardUUID, req.SourceStationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrip(trip))
}

// Complete handles POST /api/trips/{id}/complete.
func (h *TripsHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req struct {
		DestinationStationID int64         `json:"destination_station_id"`
		FinalCost            *money.Amount `json:"final_cost"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.DestinationStationID <= 0 {
		writeError(w, http.StatusBadRequest, "destination_station_id is required", "invalid_argument")
		return
	}
	var override *decimal.Decimal
	if req.FinalCost != nil {
		override = &req.FinalCost.Decimal
	}
	trip, err := h.trips.TapOut(r.Context(), id, req.DestinationStationID, override)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(trip))
}

// Cancel handles POST /api/trips/{id}/cancel.
func (h *TripsHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	trip, err := h.trips.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(trip))
}

// Get handles GET /api/trips/{id}.
func (h *TripsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	trip, err := h.trips.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(trip))
}

// List handles GET /api/trips with card_id, status, source_station_id,
// destination_station_id, from, to and limit filters.
func (h *TripsHandlers) List(w http.ResponseWriter, r *http.Request) {
	filter, err := tripFilter(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	trips, err := h.trips.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrips(trips))
}

func tripFilter(r *http.Request) (models.TripFilter, error) {
	var (
		f   models.TripFilter
		err error
	)
	if f.CardID, err = queryID(r, "card_id"); err != nil {
		return f, err
	}
	if f.SourceStationID, err = queryID(r, "source_station_id"); err != nil {
		return f, err
	}
	if f.DestinationStationID, err = queryID(r, "destination_station_id"); err != nil {
		return f, err
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if f.Limit, _, err = queryPage(r); err != nil {
		return f, err
	}
	f.Status = models.TripStatus(strings.ToLower(r.URL.Query().Get("status")))
	return f, nil
}
