package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/service"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeServiceError maps service sentinels onto stable statuses and codes.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_argument")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, service.ErrNoPricingData):
		writeError(w, http.StatusNotFound, err.Error(), "no_pricing_data")
	case errors.Is(err, service.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error(), "insufficient_funds")
	case errors.Is(err, service.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error(), "already_exists")
	case errors.Is(err, service.ErrNotActive):
		writeError(w, http.StatusConflict, err.Error(), "trip_not_active")
	case errors.Is(err, service.ErrStationInUse):
		writeError(w, http.StatusConflict, err.Error(), "station_in_use")
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrKeyInactive):
		writeError(w, http.StatusUnauthorized, "invalid credentials", "unauthorized")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %v: %w", err, errBadRequest)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return id, nil
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return t, nil
}

func queryPage(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit, offset = defaultLimit, 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q: %w", raw, errBadRequest)
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q: %w", raw, errBadRequest)
		}
	}
	return limit, offset, nil
}

func queryBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return v, nil
}
