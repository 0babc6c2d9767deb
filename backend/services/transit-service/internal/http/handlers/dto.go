package handlers

import (
	"time"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/service"
)

type cardResponse struct {
	ID         int64        `json:"id"`
	UUID       string       `json:"uuid"`
	Balance    money.Amount `json:"balance"`
	UsageCount int64        `json:"usage_count"`
	LastUsedAt *time.Time   `json:"last_used_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

func toCard(c *models.Card) cardResponse {
	return cardResponse{
		ID:         c.ID,
		UUID:       c.ExternalID,
		Balance:    money.NewAmount(c.Balance),
		UsageCount: c.UsageCount,
		LastUsedAt: c.LastUsedAt,
		CreatedAt:  c.CreatedAt,
	}
}

type tripResponse struct {
	ID                   int64             `json:"id"`
	CardID               int64             `json:"card_id"`
	SourceStationID      int64             `json:"source_station_id"`
	DestinationStationID *int64            `json:"destination_station_id"`
	Cost                 money.Amount      `json:"cost"`
	Status               models.TripStatus `json:"status"`
	StartedAt            time.Time         `json:"started_at"`
	CompletedAt          *time.Time        `json:"completed_at"`
}

func toTrip(t *models.Trip) tripResponse {
	return tripResponse{
		ID:                   t.ID,
		CardID:               t.CardID,
		SourceStationID:      t.SourceStationID,
		DestinationStationID: t.DestinationStationID,
		Cost:                 money.NewAmount(t.Cost),
		Status:               t.Status,
		StartedAt:            t.StartedAt,
		CompletedAt:          t.CompletedAt,
	}
}

func toTrips(in []models.Trip) []tripResponse {
	out := make([]tripResponse, 0, len(in))
	for i := range in {
		out = append(out, toTrip(&in[i]))
	}
	return out
}

type transactionResponse struct {
	ID              int64        `json:"id"`
	CardID          int64        `json:"card_id"`
	Kind            string       `json:"kind"`
	Amount          money.Amount `json:"amount"`
	PreviousBalance money.Amount `json:"previous_balance"`
	NewBalance      money.Amount `json:"new_balance"`
	StationID       *int64       `json:"station_id"`
	CreatedAt       time.Time    `json:"created_at"`
}

func toTransaction(t *models.Transaction) transactionResponse {
	kind := string(models.KindCredit)
	if t.IsDebit() {
		kind = string(models.KindDebit)
	}
	return transactionResponse{
		ID:              t.ID,
		CardID:          t.CardID,
		Kind:            kind,
		Amount:          money.NewAmount(t.Amount),
		PreviousBalance: money.NewAmount(t.PreviousBalance),
		NewBalance:      money.NewAmount(t.NewBalance),
		StationID:       t.StationID,
		CreatedAt:       t.CreatedAt,
	}
}

func toTransactions(in []models.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(in))
	for i := range in {
		out = append(out, toTransaction(&in[i]))
	}
	return out
}

type stationResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toStation(s *models.Station) stationResponse {
	return stationResponse{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
}

type priceResponse struct {
	ID         int64        `json:"id"`
	StationAID int64        `json:"station_a_id"`
	StationBID int64        `json:"station_b_id"`
	Price      money.Amount `json:"price"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func toPrice(p *models.Price) priceResponse {
	return priceResponse{
		ID:         p.ID,
		StationAID: p.StationAID,
		StationBID: p.StationBID,
		Price:      money.NewAmount(p.Amount),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toPrices(in []models.Price) []priceResponse {
	out := make([]priceResponse, 0, len(in))
	for i := range in {
		out = append(out, toPrice(&in[i]))
	}
	return out
}

type apiKeyResponse struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"is_active"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toAPIKey(k *models.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		IsActive:   k.Active,
		UsageCount: k.UsageCount,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}

type summaryResponse struct {
	CardID           int64                `json:"card_id"`
	Balance          money.Amount         `json:"balance"`
	TotalSpent       money.Amount         `json:"total_spent"`
	TotalAdded       money.Amount         `json:"total_added"`
	TransactionCount int64                `json:"transaction_count"`
	Latest           *transactionResponse `json:"latest_transaction"`
}

func toSummary(s *service.CardSummary) summaryResponse {
	out := summaryResponse{
		CardID:           s.CardID,
		Balance:          money.NewAmount(s.Balance),
		TotalSpent:       money.NewAmount(s.TotalSpent),
		TotalAdded:       money.NewAmount(s.TotalAdded),
		TransactionCount: s.TransactionCount,
	}
	if s.Latest != nil {
		latest := toTransaction(s.Latest)
		out.Latest = &latest
	}
	return out
}

type reconcileResponse struct {
	CardID        int64        `json:"card_id"`
	Balance       money.Amount `json:"balance"`
	LedgerBalance money.Amount `json:"ledger_balance"`
	Entries       int          `json:"entries"`
	Consistent    bool         `json:"consistent"`
	Problems      []string     `json:"problems"`
}

func toReconciliation(r *service.Reconciliation) reconcileResponse {
	problems := r.Problems
	if problems == nil {
		problems = []string{}
	}
	return reconcileResponse{
		CardID:        r.CardID,
		Balance:       money.NewAmount(r.Balance),
		LedgerBalance: money.NewAmount(r.LedgerBalance),
		Entries:       r.Entries,
		Consistent:    r.Consistent,
		Problems:      problems,
	}
}
