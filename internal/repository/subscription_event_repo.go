package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/ulid"
)

// SubscriptionEventRepository applies subscription transitions and keeps
// the ledger of processed events.
type SubscriptionEventRepository interface {
	// ApplyTransition claims the provider event id, locks the target user,
	// moves it to the next status and records the outcome, all in one
	// transaction. A repeated provider event id returns Duplicate without
	// touching the user. A transition the table rejects returns
	// models.ErrInvalidTransition; provider events are still recorded as
	// ignored in that case.
	ApplyTransition(ctx context.Context, req models.TransitionRequest) (*models.TransitionResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SubscriptionEvent, error)
}

type subscriptionEventRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionEventRepository creates a new subscription event repository.
func NewSubscriptionEventRepository(pool *pgxpool.Pool) SubscriptionEventRepository {
	return &subscriptionEventRepo{pool: pool}
}

// ApplyTransition implements SubscriptionEventRepository.
func (r *subscriptionEventRepo) ApplyTransition(ctx context.Context, req models.TransitionRequest) (*models.TransitionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ev := &models.SubscriptionEvent{
		ID:      ulid.New(),
		Kind:    req.Kind,
		Outcome: models.OutcomeIgnored,
	}

	claimed := false
	if req.ProviderEventID != "" {
		providerID := req.ProviderEventID
		ev.ProviderEventID = &providerID

		tag, err := tx.Exec(ctx, `
			INSERT INTO subscription_events (id, provider_event_id, kind, outcome)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (provider_event_id) DO NOTHING`,
			ev.ID, providerID, ev.Kind, ev.Outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("claim event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return &models.TransitionResult{Duplicate: true}, nil
		}
		claimed = true
	}

	user, err := lockUser(ctx, tx, req)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	var transitionErr error
	if user != nil {
		ev.UserID = &user.ID
		from := user.SubscriptionStatus
		ev.FromStatus = &from

		next, err := models.NextStatus(req.Kind, from)
		switch {
		case err == nil:
			var customerID *string
			if req.SetCustomerID != "" {
				customerID = &req.SetCustomerID
			}
			if _, err := tx.Exec(ctx, `
				UPDATE users
				SET subscription_status = $2,
				    stripe_customer_id = COALESCE($3, stripe_customer_id),
				    updated_at = NOW()
				WHERE id = $1`,
				user.ID, next, customerID,
			); err != nil {
				return nil, fmt.Errorf("update user status: %w", err)
			}
			ev.ToStatus = &next
			ev.Outcome = models.OutcomeApplied
		case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrUnknownEvent):
			if !claimed {
				return nil, err
			}
			transitionErr = err
		default:
			return nil, err
		}
	} else if !claimed {
		return nil, ErrNotFound
	}

	if claimed {
		_, err = tx.Exec(ctx, `
			UPDATE subscription_events
			SET user_id = $2, from_status = $3, to_status = $4, outcome = $5
			WHERE id = $1`,
			ev.ID, ev.UserID, ev.FromStatus, ev.ToStatus, ev.Outcome,
		)
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO subscription_events (id, kind, user_id, from_status, to_status, outcome)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ev.ID, ev.Kind, ev.UserID, ev.FromStatus, ev.ToStatus, ev.Outcome,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ev.CreatedAt, _ = ulid.Time(ev.ID)
	return &models.TransitionResult{Event: ev}, transitionErr
}

// ListByUser returns the most recent events for a user, newest first.
func (r *subscriptionEventRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SubscriptionEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, provider_event_id, kind, user_id, from_status, to_status, outcome, created_at
		FROM subscription_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.SubscriptionEvent, 0)
	for rows.Next() {
		var ev models.SubscriptionEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.ProviderEventID,
			&ev.Kind,
			&ev.UserID,
			&ev.FromStatus,
			&ev.ToStatus,
			&ev.Outcome,
			&ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// lockUser selects the user addressed by req with FOR UPDATE.
func lockUser(ctx context.Context, tx pgx.Tx, req models.TransitionRequest) (*models.User, error) {
	base := `SELECT ` + userColumns + ` FROM users WHERE `
	switch {
	case req.UserID != uuid.Nil:
		return scanUser(tx.QueryRow(ctx, base+`id = $1 FOR UPDATE`, req.UserID))
	case req.Email != "":
		return scanUser(tx.QueryRow(ctx, base+`email = $1 FOR UPDATE`, req.Email))
	case req.CustomerID != "":
		return scanUser(tx.QueryRow(ctx, base+`stripe_customer_id = $1 FOR UPDATE`, req.CustomerID))
	}
	return nil, nil
}
