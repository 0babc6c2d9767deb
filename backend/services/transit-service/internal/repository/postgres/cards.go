package postgres

import (
	"context"
	"database/sql"

	"transitkiosk/backend/services/transit-service/internal/models"
)

const cardColumns = `id, external_id, balance, usage_count, last_used_at, created_at`

// CardRepository handles the cards table.
type CardRepository struct {
	q querier
}

// Create inserts a card. Balance always starts at zero.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	const query = `
		INSERT INTO cards (external_id, balance, usage_count, created_at)
		VALUES ($1, 0, 0, NOW())
		RETURNING ` + cardColumns
	return mapError(scanCard(r.q.QueryRowContext(ctx, query, card.ExternalID), card))
}

// Get fetches a card by id.
func (r *CardRepository) Get(ctx context.Context, id int64) (*models.Card, error) {
	const query = `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	return r.one(ctx, query, id)
}

// GetByExternalID fetches a card by its external token.
func (r *CardRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Card, error) {
	const query = `SELECT ` + cardColumns + ` FROM cards WHERE external_id = $1`
	return r.one(ctx, query, externalID)
}

// GetForUpdate locks the card row for the rest of the transaction.
func (r *CardRepository) GetForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	const query = `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`
	return r.one(ctx, query, id)
}

// List returns cards ordered by id.
func (r *CardRepository) List(ctx context.Context, limit, offset int) ([]models.Card, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + cardColumns + ` FROM cards ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := scanCard(rows, &c); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *CardRepository) one(ctx context.Context, query string, arg any) (*models.Card, error) {
	var card models.Card
	if err := scanCard(r.q.QueryRowContext(ctx, query, arg), &card); err != nil {
		return nil, mapError(err)
	}
	return &card, nil
}

func scanCard(row rowScanner, card *models.Card) error {
	var lastUsed sql.NullTime
	if err := row.Scan(&card.ID, &card.ExternalID, &card.Balance, &card.UsageCount, &lastUsed, &card.CreatedAt); err != nil {
		return err
	}
	card.LastUsedAt = nullTimePtr(lastUsed)
	return nil
}
