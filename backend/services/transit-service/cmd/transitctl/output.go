package main

import (
	"time"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/service"
)

type cardOutput struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"external_id"`
	Balance    string     `json:"balance"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

type summaryOutput struct {
	Card             cardOutput `json:"card"`
	TotalSpent       string     `json:"total_spent"`
	TotalAdded       string     `json:"total_added"`
	TransactionCount int64      `json:"transaction_count"`
}

type tripOutput struct {
	ID                   int64      `json:"id"`
	Status               string     `json:"status"`
	SourceStationID      int64      `json:"source_station_id"`
	DestinationStationID *int64     `json:"destination_station_id,omitempty"`
	Cost                 string     `json:"cost"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

func toCardOutput(c *models.Card) cardOutput {
	return cardOutput{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Balance:    money.Format(c.Balance),
		UsageCount: c.UsageCount,
		LastUsedAt: c.LastUsedAt,
	}
}

func toSummaryOutput(c *models.Card, s *service.CardSummary) summaryOutput {
	return summaryOutput{
		Card:             toCardOutput(c),
		TotalSpent:       money.Format(s.TotalSpent),
		TotalAdded:       money.Format(s.TotalAdded),
		TransactionCount: s.TransactionCount,
	}
}

func toTripOutputs(trips []models.Trip) []tripOutput {
	out := make([]tripOutput, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripOutput{
			ID:                   t.ID,
			Status:               string(t.Status),
			SourceStationID:      t.SourceStationID,
			DestinationStationID: t.DestinationStationID,
			Cost:                 money.Format(t.Cost),
			StartedAt:            t.StartedAt,
			CompletedAt:          t.CompletedAt,
		})
	}
	return out
}
