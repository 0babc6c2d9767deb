package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

const apiKeyPrefix = "tk_"

// APIKeyUsage is the usage view of a key.
type APIKeyUsage struct {
	ID         int64
	Name       string
	Active     bool
	UsageCount int64
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// APIKeyService issues and validates kiosk API keys.
type APIKeyService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewAPIKeyService builds APIKeyService.
func NewAPIKeyService(store repository.Store, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create issues a key. The plaintext is returned once and never stored.
func (s *APIKeyService) Create(ctx context.Context, name string) (*models.APIKey, string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < 3 || n > 100 {
		return nil, "", invalid("api key name must be 3 to 100 characters")
	}
	plaintext, err := generateAPIKey()
	if err != nil {
		return nil, "", err
	}
	key := &models.APIKey{Name: name, KeyHash: hashAPIKey(plaintext)}
	if err := s.store.APIKeys().Create(ctx, key); err != nil {
		return nil, "", err
	}
	s.logger.Info("api key created", zap.Int64("api_key_id", key.ID), zap.String("name", name))
	return key, plaintext, nil
}

// Authenticate resolves an active key from its plaintext and records the use. Usage
// bookkeeping failures are logged and do not reject the request.
func (s *APIKeyService) Authenticate(ctx context.Context, plaintext string) (*models.APIKey, error) {
	plaintext = strings.TrimSpace(plaintext)
	if !strings.HasPrefix(plaintext, apiKeyPrefix) {
		return nil, ErrKeyInactive
	}
	key, err := s.store.APIKeys().GetByHash(ctx, hashAPIKey(plaintext))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrKeyInactive
	}
	if err != nil {
		return nil, err
	}
	if !key.Active {
		return nil, fmt.Errorf("api key %d: %w", key.ID, ErrKeyInactive)
	}
	if err := s.store.APIKeys().TouchUsage(ctx, key.ID, s.now()); err != nil {
		s.logger.Warn("failed to record api key usage", zap.Int64("api_key_id", key.ID), zap.Error(err))
	}
	return key, nil
}

// Get returns a key by id.
func (s *APIKeyService) Get(ctx context.Context, id int64) (*models.APIKey, error) {
	key, err := s.store.APIKeys().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "api key %d", id)
	}
	return key, nil
}

// List returns keys newest first.
func (s *APIKeyService) List(ctx context.Context) ([]models.APIKey, error) {
	return s.store.APIKeys().List(ctx)
}

// Usage reports how often a key has been used.
func (s *APIKeyService) Usage(ctx context.Context, id int64) (*APIKeyUsage, error) {
	key, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &APIKeyUsage{
		ID:         key.ID,
		Name:       key.Name,
		Active:     key.Active,
		UsageCount: key.UsageCount,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
	}, nil
}

// Activate re-enables a key.
func (s *APIKeyService) Activate(ctx context.Context, id int64) (*models.APIKey, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate disables a key.
func (s *APIKeyService) Deactivate(ctx context.Context, id int64) (*models.APIKey, error) {
	return s.setActive(ctx, id, false)
}

func (s *APIKeyService) setActive(ctx context.Context, id int64, active bool) (*models.APIKey, error) {
	key, err := s.store.APIKeys().SetActive(ctx, id, active)
	if err != nil {
		return nil, notFound(err, "api key %d", id)
	}
	s.logger.Info("api key state changed", zap.Int64("api_key_id", id), zap.Bool("active", active))
	return key, nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("api key: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
