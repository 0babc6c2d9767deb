package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	if got := levelFromEnv(); got != zapcore.DebugLevel {
		t.Fatalf("expected debug, got %s", got)
	}

	t.Setenv("LOG_LEVEL", "bogus")
	if got := levelFromEnv(); got != zapcore.InfoLevel {
		t.Fatalf("expected info fallback, got %s", got)
	}
}

func TestNewCLILogger(t *testing.T) {
	logger, err := NewCLILogger()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_ = logger.Sync()
}
