package models

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the account state that gates feature access.
type SubscriptionStatus string

const (
	// StatusInactive means no plan has been chosen yet.
	StatusInactive SubscriptionStatus = "INACTIVE"
	StatusFree     SubscriptionStatus = "FREE"
	// StatusActive means a paid subscription is in good standing.
	StatusActive SubscriptionStatus = "ACTIVE"
)

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusInactive, StatusFree, StatusActive:
		return true
	}
	return false
}

// PlanName returns the customer-facing plan name.
func (s SubscriptionStatus) PlanName() string {
	if s == StatusActive {
		return "Premium"
	}
	return "Free"
}

// Features lists what a subscription status unlocks.
type Features struct {
	ExtendedForecast bool `json:"extended_forecast"`
	Historical       bool `json:"historical"`
}

// Features returns the features available at this status.
func (s SubscriptionStatus) Features() Features {
	paid := s == StatusActive
	return Features{
		ExtendedForecast: paid,
		Historical:       paid,
	}
}

// EventKind identifies something that moves a subscription between states.
type EventKind string

const (
	EventFreePlanSelected    EventKind = "plan.free_selected"
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
)

var (
	// ErrInvalidTransition is returned when an event is not allowed from the current status.
	ErrInvalidTransition = errors.New("subscription transition not allowed")
	// ErrUnknownEvent is returned for event kinds with no transition.
	ErrUnknownEvent = errors.New("unknown subscription event")
)

type transition struct {
	from []SubscriptionStatus
	to   SubscriptionStatus
}

// transitions is the complete state table. Anything not listed is rejected.
var transitions = map[EventKind]transition{
	EventFreePlanSelected: {
		from: []SubscriptionStatus{StatusInactive, StatusFree},
		to:   StatusFree,
	},
	EventCheckoutCompleted: {
		from: []SubscriptionStatus{StatusInactive, StatusFree, StatusActive},
		to:   StatusActive,
	},
	EventSubscriptionDeleted: {
		from: []SubscriptionStatus{StatusActive},
		to:   StatusFree,
	},
}

// Handled reports whether the event kind has a transition.
func (k EventKind) Handled() bool {
	_, ok := transitions[k]
	return ok
}

// NextStatus returns the status that results from applying kind to current.
func NextStatus(kind EventKind, current SubscriptionStatus) (SubscriptionStatus, error) {
	t, ok := transitions[kind]
	if !ok {
		return current, ErrUnknownEvent
	}
	if !slices.Contains(t.from, current) {
		return current, ErrInvalidTransition
	}
	return t.to, nil
}

// EventOutcome records what processing an event did.
type EventOutcome string

const (
	OutcomeApplied EventOutcome = "applied"
	OutcomeIgnored EventOutcome = "ignored"
)

// SubscriptionEvent is the ledger entry for one processed subscription event.
type SubscriptionEvent struct {
	ID              string              `json:"id" db:"id"`
	ProviderEventID *string             `json:"provider_event_id,omitempty" db:"provider_event_id"`
	Kind            EventKind           `json:"kind" db:"kind"`
	UserID          *uuid.UUID          `json:"user_id,omitempty" db:"user_id"`
	FromStatus      *SubscriptionStatus `json:"from_status,omitempty" db:"from_status"`
	ToStatus        *SubscriptionStatus `json:"to_status,omitempty" db:"to_status"`
	Outcome         EventOutcome        `json:"outcome" db:"outcome"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
}

// TransitionRequest describes a status change keyed by a user lookup.
// Exactly one of Email, CustomerID or UserID identifies the user.
type TransitionRequest struct {
	ProviderEventID string
	Kind            EventKind
	UserID          uuid.UUID
	Email           string
	CustomerID      string
	// SetCustomerID stores the payment provider customer id alongside the change.
	SetCustomerID string
}

// TransitionResult reports the effect of a TransitionRequest.
type TransitionResult struct {
	Duplicate bool
	Event     *SubscriptionEvent
}
