package models

import "time"

// Station is a named stop where cards tap in and out.
type Station struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
