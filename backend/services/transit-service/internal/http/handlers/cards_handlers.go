package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// CardsHandlers serves /api/cards.
type CardsHandlers struct {
	cards  *service.CardService
	ledger *service.Ledger
	trips  *service.TripLedger
	logger *zap.Logger
}

// NewCardsHandlers returns handler.
func NewCardsHandlers(cards *service.CardService, ledger *service.Ledger, trips *service.TripLedger, logger *zap.Logger) *CardsHandlers {
	return &CardsHandlers{cards: cards, ledger: ledger, trips: trips, logger: logger}
}

// Create handles POST /api/cards.
func (h *CardsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitialBalance *money.Amount `json:"initial_balance"`
		UUID           string        `json:"uuid"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	initial := money.Zero
	if req.InitialBalance != nil {
		initial = req.InitialBalance.Decimal
	}
	card, err := h.cards.Create(r.Context(), initial, req.UUID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCard(card))
}

// List handles GET /api/cards.
func (h *CardsHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := queryPage(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	cards, err := h.cards.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	out := make([]cardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, toCard(&cards[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/cards/{id}.
func (h *CardsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	card, err := h.cards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCard(card))
}

// GetByUUID handles GET /api/cards/uuid/{uuid}.
func (h *CardsHandlers) GetByUUID(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.GetByExternalID(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCard(card))
}

// AddFunds handles POST /api/cards/{id}/add-funds.
func (h *CardsHandlers) AddFunds(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req struct {
		Amount *money.Amount `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required", "invalid_argument")
		return
	}
	card, err := h.trips.Credit(r.Context(), id, req.Amount.Decimal)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCard(card))
}

// Use handles POST /api/cards/{id}/use.
func (h *CardsHandlers) Use(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req struct {
		Amount    *money.Amount `json:"amount"`
		StationID *int64        `json:"station_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required", "invalid_argument")
		return
	}
	card, entry, err := h.cards.RecordUsage(r.Context(), id, req.Amount.Decimal, req.StationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Card        cardResponse        `json:"card"`
		Transaction transactionResponse `json:"transaction"`
	}{toCard(card), toTransaction(entry)})
}

// Transactions handles GET /api/cards/{id}/transactions.
func (h *CardsHandlers) Transactions(w http.ResponseWriter, r *http.Request) {
	h.transactions(w, r, h.ledger.TransactionsForCard)
}

// Credits handles GET /api/cards/{id}/transactions/credits.
func (h *CardsHandlers) Credits(w http.ResponseWriter, r *http.Request) {
	h.transactions(w, r, h.ledger.CreditsForCard)
}

// Debits handles GET /api/cards/{id}/transactions/debits.
func (h *CardsHandlers) Debits(w http.ResponseWriter, r *http.Request) {
	h.transactions(w, r, h.ledger.DebitsForCard)
}

func (h *CardsHandlers) transactions(w http.ResponseWriter, r *http.Request, load func(ctx context.Context, cardID int64) ([]models.Transaction, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	entries, err := load(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactions(entries))
}

// Summary handles GET /api/cards/{id}/transaction-summary.
func (h *CardsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	summary, err := h.ledger.Summary(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummary(summary))
}

// Reconcile handles GET /api/cards/{id}/reconcile.
func (h *CardsHandlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	result, err := h.ledger.Reconcile(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliation(result))
}

// Trips handles GET /api/cards/{id}/trips.
func (h *CardsHandlers) Trips(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	trips, err := h.cards.Trips(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrips(trips))
}

// ActiveTrip handles GET /api/cards/{id}/active-trip.
func (h *CardsHandlers) ActiveTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	trip, err := h.cards.ActiveTrip(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if trip == nil {
		writeServiceError(w, h.logger, fmt.Errorf("active trip of card %d: %w", id, service.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toTrip(trip))
}
