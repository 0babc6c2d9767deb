package postgres

import (
	"context"
	"database/sql"
	"time"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

const apiKeyColumns = `id, name, key_hash, is_active, usage_count, last_used_at, created_at`

// APIKeyRepository handles the api_keys table.
type APIKeyRepository struct {
	q querier
}

// Create inserts an active key.
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	const query = `
		INSERT INTO api_keys (name, key_hash, is_active, usage_count, created_at)
		VALUES ($1, $2, TRUE, 0, NOW())
		RETURNING ` + apiKeyColumns
	return mapError(scanAPIKey(r.q.QueryRowContext(ctx, query, key.Name, key.KeyHash), key))
}

// Get fetches a key by id.
func (r *APIKeyRepository) Get(ctx context.Context, id int64) (*models.APIKey, error) {
	return r.one(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
}

// GetByHash fetches a key by the hash of its plaintext.
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	return r.one(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash)
}

// List returns keys newest first.
func (r *APIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := scanAPIKey(rows, &k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SetActive toggles a key.
func (r *APIKeyRepository) SetActive(ctx context.Context, id int64, active bool) (*models.APIKey, error) {
	return r.one(ctx, `UPDATE api_keys SET is_active = $2 WHERE id = $1 RETURNING `+apiKeyColumns, id, active)
}

// TouchUsage records one authenticated request.
func (r *APIKeyRepository) TouchUsage(ctx context.Context, id int64, at time.Time) error {
	result, err := r.q.ExecContext(ctx, `UPDATE api_keys SET usage_count = usage_count + 1, last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepository) one(ctx context.Context, query string, args ...any) (*models.APIKey, error) {
	var k models.APIKey
	if err := scanAPIKey(r.q.QueryRowContext(ctx, query, args...), &k); err != nil {
		return nil, mapError(err)
	}
	return &k, nil
}

func scanAPIKey(row rowScanner, k *models.APIKey) error {
	var lastUsed sql.NullTime
	if err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.Active, &k.UsageCount, &lastUsed, &k.CreatedAt); err != nil {
		return err
	}
	k.LastUsedAt = nullTimePtr(lastUsed)
	return nil
}
