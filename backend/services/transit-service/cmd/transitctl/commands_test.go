package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func memoryConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transit.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: memory\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := run(t, "hunter2\n", "hash-password", "--cost", "4")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")); err != nil {
		t.Fatalf("hash does not match: %v", err)
	}
}

func TestCardCreateOnMemoryStore(t *testing.T) {
	cfg := memoryConfigFile(t)
	out, err := run(t, "", "--config", cfg, "card", "create", "CARD-1", "--balance", "12.5")
	if err != nil {
		t.Fatalf("card create: %v", err)
	}
	var card cardOutput
	if err := json.Unmarshal([]byte(out), &card); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if card.ExternalID != "CARD-1" || card.Balance != "12.50" {
		t.Fatalf("unexpected card %+v", card)
	}
}

func TestSeedOnMemoryStore(t *testing.T) {
	out, err := run(t, "", "--config", memoryConfigFile(t), "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	var res map[string]int
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res["stations"] != 8 || res["prices"] != 28 {
		t.Fatalf("unexpected seed result %v", res)
	}
}

func TestArgumentValidation(t *testing.T) {
	cfg := memoryConfigFile(t)
	cases := [][]string{
		{"--config", cfg, "card", "credit", "abc", "5"},
		{"--config", cfg, "card", "credit", "1", "5.001"},
		{"--config", cfg, "card", "trips", "1", "--status", "lost"},
		{"--config", cfg, "migrate"},
	}
	for _, args := range cases {
		if _, err := run(t, "", args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
