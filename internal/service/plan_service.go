package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

// Plan names accepted by SelectPlan.
const (
	PlanFree    = "FREE"
	PlanPremium = "PREMIUM"
)

const historyLimit = 20

var (
	// ErrInvalidPlan is returned for unknown plan names.
	ErrInvalidPlan = apierrors.NewBadRequestError("invalid_plan", "Invalid plan")
	// ErrPremiumActive is returned when choosing the free plan with a paid subscription.
	ErrPremiumActive = apierrors.NewConflictError("Premium subscription is active; cancel it from the billing portal first")
)

// PlanSelection is the result of choosing a plan. A free selection sets
// Status; a premium selection returns the checkout session to redirect to.
type PlanSelection struct {
	Status    models.SubscriptionStatus `json:"status,omitempty"`
	SessionID string                    `json:"session_id,omitempty"`
	URL       string                    `json:"url,omitempty"`
}

// PlanService defines plan selection.
type PlanService interface {
	// SelectPlan applies the free plan or starts a premium checkout.
	SelectPlan(ctx context.Context, userID uuid.UUID, plan string) (*PlanSelection, error)

	// ActivateFreePlan moves the user to the free plan.
	ActivateFreePlan(ctx context.Context, userID uuid.UUID) error

	// History returns the user's most recent subscription events, newest first.
	History(ctx context.Context, userID uuid.UUID) ([]*models.SubscriptionEvent, error)
}

type planService struct {
	eventRepo repository.SubscriptionEventRepository
	billing   BillingService
}

// NewPlanService creates a new plan service.
func NewPlanService(eventRepo repository.SubscriptionEventRepository, billing BillingService) PlanService {
	return &planService{
		eventRepo: eventRepo,
		billing:   billing,
	}
}

func (s *planService) SelectPlan(ctx context.Context, userID uuid.UUID, plan string) (*PlanSelection, error) {
	switch strings.ToUpper(strings.TrimSpace(plan)) {
	case PlanFree:
		if err := s.ActivateFreePlan(ctx, userID); err != nil {
			return nil, err
		}
		return &PlanSelection{Status: models.StatusFree}, nil

	case PlanPremium:
		session, err := s.billing.CreateCheckoutSession(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &PlanSelection{SessionID: session.SessionID, URL: session.URL}, nil
	}
	return nil, ErrInvalidPlan
}

func (s *planService) ActivateFreePlan(ctx context.Context, userID uuid.UUID) error {
	_, err := s.eventRepo.ApplyTransition(ctx, models.TransitionRequest{
		Kind:   models.EventFreePlanSelected,
		UserID: userID,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidTransition):
		return ErrPremiumActive
	case errors.Is(err, repository.ErrNotFound):
		return apierrors.ErrUnauthorized
	}
	return fmt.Errorf("failed to activate free plan: %w", err)
}

func (s *planService) History(ctx context.Context, userID uuid.UUID) ([]*models.SubscriptionEvent, error) {
	events, err := s.eventRepo.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscription events: %w", err)
	}
	return events, nil
}

// Compile-time check to ensure planService implements PlanService.
var _ PlanService = (*planService)(nil)
