package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"transitkiosk/backend/services/transit-service/internal/password"
)

func TestAPIKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	keys := NewAPIKeyService(env.store, zap.NewNop())

	key, plaintext, err := keys.Create(ctx, "kiosk-7")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(plaintext, "tk_") || len(plaintext) != 3+43 {
		t.Fatalf("unexpected key format %q", plaintext)
	}
	if key.KeyHash == plaintext || key.KeyHash != hashAPIKey(plaintext) {
		t.Fatalf("key must be stored hashed")
	}

	got, err := keys.Authenticate(ctx, plaintext)
	if err != nil || got.ID != key.ID {
		t.Fatalf("authenticate: %+v (%v)", got, err)
	}
	usage, _ := keys.Get(ctx, key.ID)
	if usage.UsageCount != 1 || usage.LastUsedAt == nil {
		t.Fatalf("usage not recorded: %+v", usage)
	}

	if _, err := keys.Deactivate(ctx, key.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := keys.Authenticate(ctx, plaintext); !errors.Is(err, ErrKeyInactive) {
		t.Fatalf("expected ErrKeyInactive, got %v", err)
	}
	if _, err := keys.Activate(ctx, key.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := keys.Authenticate(ctx, plaintext); err != nil {
		t.Fatalf("reactivated key: %v", err)
	}

	for _, bad := range []string{"", "tk_unknown", "not-a-key"} {
		if _, err := keys.Authenticate(ctx, bad); !errors.Is(err, ErrKeyInactive) {
			t.Fatalf("key %q: expected ErrKeyInactive, got %v", bad, err)
		}
	}
	if _, err := keys.Activate(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := keys.Create(ctx, "k"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	hasher := password.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	tokens := NewTokenService("secret", time.Minute)
	auth := NewAdminAuth("admin", hash, hasher, tokens, zap.NewNop())

	token, expires, err := auth.Login(context.Background(), "admin", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("token already expired: %s", expires)
	}
	claims, err := auth.Validate(token)
	if err != nil || claims.Subject != "admin" {
		t.Fatalf("validate: %+v (%v)", claims, err)
	}

	tests := []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "correct horse"},
		{"", ""},
	}
	for _, tt := range tests {
		if _, _, err := auth.Login(context.Background(), tt.user, tt.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %q: expected ErrInvalidCredentials, got %v", tt.user, err)
		}
	}

	other := NewTokenService("other-secret", time.Minute)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for foreign token, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	tokens := NewTokenService("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issued }
	token, _, err := tokens.GenerateToken("admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tokens.now = time.Now
	if _, err := tokens.ValidateToken(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}
