package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/service"
)

type contextKey string

const (
	adminKey  contextKey = "admin"
	apiKeyKey contextKey = "apiKey"
)

// APIKeyHeader carries the kiosk key.
const APIKeyHeader = "X-API-Key"

// TokenValidator checks admin bearer tokens.
type TokenValidator interface {
	Validate(token string) (*service.Claims, error)
}

// KeyAuthenticator resolves kiosk API keys.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, key string) (*models.APIKey, error)
}

// AdminAuth requires a valid admin JWT in the Authorization header.
func AdminAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Bearer", "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "Bearer", "invalid authorization header")
				return
			}
			claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				unauthorized(w, "Bearer", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), adminKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyAuth requires an active kiosk key in the X-API-Key header.
func APIKeyAuth(keys KeyAuthenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(APIKeyHeader)
			if raw == "" {
				unauthorized(w, "ApiKey", "API key required. Include X-API-Key header.")
				return
			}
			key, err := keys.Authenticate(r.Context(), raw)
			switch {
			case errors.Is(err, service.ErrKeyInactive):
				unauthorized(w, "ApiKey", "invalid or inactive API key")
				return
			case err != nil:
				logger.Error("api key lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal error", "internal")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyKey, key.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext returns the authenticated operator name.
func AdminFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(adminKey).(string)
	return name, ok
}

// APIKeyIDFromContext returns the id of the kiosk key that authorized the request.
func APIKeyIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(apiKeyKey).(int64)
	return id, ok
}

func unauthorized(w http.ResponseWriter, scheme, message string) {
	w.Header().Set("WWW-Authenticate", scheme)
	writeError(w, http.StatusUnauthorized, message, "unauthorized")
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
