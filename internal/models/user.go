// Package models defines the data models for the Weatherapp API.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account.
type User struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	Email              string             `json:"email" db:"email"`
	PasswordHash       *string            `json:"-" db:"password_hash"`
	Name               string             `json:"name" db:"name"`
	IsExtAuth          bool               `json:"is_ext_auth" db:"is_ext_auth"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	StripeCustomerID   *string            `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	LastLoginAt        *time.Time         `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// HasPassword reports whether the user can sign in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Session represents an authenticated user session.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is no longer valid at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
