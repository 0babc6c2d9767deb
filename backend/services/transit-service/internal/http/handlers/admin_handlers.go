package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/service"
)

// AdminHandlers serves operator login and kiosk API key management.
type AdminHandlers struct {
	auth   *service.AdminAuth
	keys   *service.APIKeyService
	logger *zap.Logger
}

// NewAdminHandlers returns handler.
func NewAdminHandlers(auth *service.AdminAuth, keys *service.APIKeyService, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{auth: auth, keys: keys, logger: logger}
}

// Login handles POST /api/admin/login.
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Token     string    `json:"token"`
		TokenType string    `json:"token_type"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required", "invalid_argument")
		return
	}

	token, expires, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}

// CreateKey handles POST /api/admin/api-keys. The plaintext key is only in this response.
func (h *AdminHandlers) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	key, plaintext, err := h.keys.Create(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		APIKey   string `json:"api_key"`
		IsActive bool   `json:"is_active"`
	}{key.ID, key.Name, plaintext, key.Active})
}

// ListKeys handles GET /api/admin/api-keys.
func (h *AdminHandlers) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, toAPIKey(&keys[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetKey handles GET /api/admin/api-keys/{id}.
func (h *AdminHandlers) GetKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	key, err := h.keys.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIKey(key))
}

// Activate handles POST /api/admin/api-keys/{id}/activate.
func (h *AdminHandlers) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.keys.Activate)
}

// Deactivate handles POST /api/admin/api-keys/{id}/deactivate.
func (h *AdminHandlers) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.keys.Deactivate)
}

func (h *AdminHandlers) setActive(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) (*models.APIKey, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	key, err := apply(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIKey(key))
}

// Usage handles GET /api/admin/api-keys/{id}/usage.
func (h *AdminHandlers) Usage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	usage, err := h.keys.Usage(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		KeyID      int64      `json:"key_id"`
		Name       string     `json:"name"`
		UsageCount int64      `json:"usage_count"`
		LastUsedAt *time.Time `json:"last_used_at"`
		CreatedAt  time.Time  `json:"created_at"`
		IsActive   bool       `json:"is_active"`
	}{usage.ID, usage.Name, usage.UsageCount, usage.LastUsedAt, usage.CreatedAt, usage.Active})
}
