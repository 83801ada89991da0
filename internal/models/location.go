package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a place a user tracks weather for.
type Location struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	City      string    `json:"city" db:"city"`
	Country   string    `json:"country" db:"country"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsOwnedBy reports whether userID owns the location.
func (l *Location) IsOwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && l.UserID == userID
}

// Key identifies the location in aggregated weather results.
func (l *Location) Key() string {
	return l.City + "-" + l.Country
}
