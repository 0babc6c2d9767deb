package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// TransactionsHandlers serves /api/transactions.
type TransactionsHandlers struct {
	ledger *service.Ledger
	logger *zap.Logger
}

// NewTransactionsHandlers returns handler.
func NewTransactionsHandlers(ledger *service.Ledger, logger *zap.Logger) *TransactionsHandlers {
	return &TransactionsHandlers{ledger: ledger, logger: logger}
}

// List handles GET /api/transactions.
func (h *TransactionsHandlers) List(w http.ResponseWriter, r *http.Request) {
	var (
		f   models.TransactionFilter
		err error
	)
	if f.CardID, err = queryID(r, "card_id"); err == nil {
		f.StationID, err = queryID(r, "station_id")
	}
	if err == nil {
		f.From, err = queryTime(r, "from")
	}
	if err == nil {
		f.To, err = queryTime(r, "to")
	}
	if err == nil {
		f.Limit, _, err = queryPage(r)
	}
	if err == nil {
		switch kind := models.TransactionKind(strings.ToLower(r.URL.Query().Get("kind"))); kind {
		case models.KindAny, models.KindCredit, models.KindDebit:
			f.Kind = kind
		default:
			err = fmt.Errorf("unknown transaction kind %q: %w", kind, errBadRequest)
		}
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	entries, err := h.ledger.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactions(entries))
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	entry, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransaction(entry))
}
