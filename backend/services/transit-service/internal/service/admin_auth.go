package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/password"
)

// AdminAuth checks the configured operator credentials and issues admin tokens.
type AdminAuth struct {
	username     string
	passwordHash string
	hasher       password.Hasher
	tokens       *TokenService
	logger       *zap.Logger
}

// NewAdminAuth builds AdminAuth. An empty passwordHash disables login.
func NewAdminAuth(username, passwordHash string, hasher password.Hasher, tokens *TokenService, logger *zap.Logger) *AdminAuth {
	return &AdminAuth{
		username:     username,
		passwordHash: passwordHash,
		hasher:       hasher,
		tokens:       tokens,
		logger:       logger,
	}
}

// Login authenticates the operator and produces a JWT.
func (a *AdminAuth) Login(_ context.Context, username, pass string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if a.passwordHash == "" || username == "" || pass == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		a.logger.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := a.hasher.Compare(a.passwordHash, pass); err != nil {
		a.logger.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err := a.tokens.GenerateToken(username)
	if err != nil {
		return "", time.Time{}, err
	}
	a.logger.Info("admin logged in", zap.String("username", username))
	return token, expires, nil
}

// Validate checks an admin bearer token.
func (a *AdminAuth) Validate(token string) (*Claims, error) {
	return a.tokens.ValidateToken(token)
}
