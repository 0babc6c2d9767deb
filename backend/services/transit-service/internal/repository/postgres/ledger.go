package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

const transactionColumns = `id, card_id, amount, previous_balance, new_balance, station_id, created_at`

// LedgerRepository handles the transactions table and is the only writer of cards.balance.
type LedgerRepository struct {
	q querier
}

// Append writes the ledger row and moves the card balance in one statement. The balance
// update only matches while the stored balance still equals entry.PreviousBalance.
func (r *LedgerRepository) Append(ctx context.Context, entry *models.Transaction, usage bool) error {
	const query = `
		WITH moved AS (
			UPDATE cards
			SET balance = $3,
			    usage_count = usage_count + CASE WHEN $5::boolean THEN 1 ELSE 0 END,
			    last_used_at = CASE WHEN $5::boolean THEN $6::timestamptz ELSE last_used_at END
			WHERE id = $1 AND balance = $2
			RETURNING id
		)
		INSERT INTO transactions (card_id, amount, previous_balance, new_balance, station_id, created_at)
		SELECT moved.id, $4, $2, $3, $7, $6::timestamptz FROM moved
		RETURNING id, created_at
	`
	err := r.q.QueryRowContext(ctx, query,
		entry.CardID,
		entry.PreviousBalance,
		entry.NewBalance,
		entry.Amount,
		usage,
		entry.CreatedAt,
		int64PtrArg(entry.StationID),
	).Scan(&entry.ID, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrConflict
	}
	if err != nil {
		return mapError(err)
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return nil
}

// Get fetches one entry.
func (r *LedgerRepository) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	var tx models.Transaction
	if err := scanTransaction(r.q.QueryRowContext(ctx, query, id), &tx); err != nil {
		return nil, mapError(err)
	}
	return &tx, nil
}

// List returns entries matching filter newest first.
func (r *LedgerRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	where := transactionWhere(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where.clause() + ` ORDER BY id DESC`
	query += where.limit(filter.Limit)
	return r.many(ctx, query, where.args...)
}

// History returns the card's entries in append order.
func (r *LedgerRepository) History(ctx context.Context, cardID int64) ([]models.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE card_id = $1 ORDER BY id`
	return r.many(ctx, query, cardID)
}

// Latest returns the most recent entry of the card.
func (r *LedgerRepository) Latest(ctx context.Context, cardID int64) (*models.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE card_id = $1 ORDER BY id DESC LIMIT 1`
	var tx models.Transaction
	if err := scanTransaction(r.q.QueryRowContext(ctx, query, cardID), &tx); err != nil {
		return nil, mapError(err)
	}
	return &tx, nil
}

// Sum adds absolute amounts of matching entries and counts them.
func (r *LedgerRepository) Sum(ctx context.Context, filter models.TransactionFilter) (decimal.Decimal, int64, error) {
	where := transactionWhere(filter)
	query := `SELECT COALESCE(SUM(ABS(amount)), 0), COUNT(*) FROM transactions` + where.clause()
	var (
		total decimal.Decimal
		count int64
	)
	if err := r.q.QueryRowContext(ctx, query, where.args...).Scan(&total, &count); err != nil {
		return decimal.Decimal{}, 0, err
	}
	return total, count, nil
}

func transactionWhere(filter models.TransactionFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.CardID != 0 {
		where.add("card_id = $%d", filter.CardID)
	}
	if filter.StationID != 0 {
		where.add("station_id = $%d", filter.StationID)
	}
	switch filter.Kind {
	case models.KindCredit:
		where.raw("amount > 0")
	case models.KindDebit:
		where.raw("amount < 0")
	}
	if !filter.From.IsZero() {
		where.add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		where.add("created_at <= $%d", filter.To)
	}
	return where
}

func (r *LedgerRepository) many(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := scanTransaction(rows, &tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row rowScanner, tx *models.Transaction) error {
	var station sql.NullInt64
	if err := row.Scan(&tx.ID, &tx.CardID, &tx.Amount, &tx.PreviousBalance, &tx.NewBalance, &station, &tx.CreatedAt); err != nil {
		return err
	}
	tx.StationID = nullInt64Ptr(station)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return nil
}
