package models

import "time"

// APIKey authorizes a kiosk. Only the SHA-256 hash of the key is stored.
type APIKey struct {
	ID         int64
	Name       string
	KeyHash    string
	Active     bool
	UsageCount int64
	LastUsedAt *time.Time
	CreatedAt  time.Time
}
