package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

var webhooksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "weatherapp_stripe_webhooks_total",
		Help: "Total Stripe webhook deliveries by event type and outcome",
	},
	[]string{"type", "outcome"},
)

// Webhook outcomes beyond the ledger's applied and ignored.
const (
	outcomeDuplicate        = "duplicate"
	outcomeInvalidSignature = "invalid_signature"
	outcomeError            = "error"
)

var (
	// ErrMissingSignature is returned when the Stripe-Signature header is absent.
	ErrMissingSignature = apierrors.NewBadRequestError("missing_signature", "Missing Stripe-Signature header")
	// ErrInvalidSignature is returned when the webhook signature does not verify.
	ErrInvalidSignature = apierrors.NewBadRequestError("invalid_signature", "Invalid webhook signature")
	// ErrNoBillingAccount is returned when a user has no Stripe customer yet.
	ErrNoBillingAccount = apierrors.NewBadRequestError("no_billing_account", "No billing account found for this user")
	// ErrBillingNotConfigured is returned when no premium price is configured.
	ErrBillingNotConfigured = apierrors.ErrServiceUnavailable.WithMessage("Billing is not configured")
)

// PaymentGateway creates hosted Stripe sessions.
type PaymentGateway interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a PaymentGateway backed by the Stripe API.
func NewStripeGateway(secretKey string) PaymentGateway {
	return &stripeGateway{api: client.New(secretKey, nil)}
}

func (g *stripeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return g.api.CheckoutSessions.New(params)
}

func (g *stripeGateway) CreatePortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return g.api.BillingPortalSessions.New(params)
}

// CheckoutSession is a created Stripe Checkout session.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookResult describes what a webhook delivery did.
type WebhookResult struct {
	EventID   string `json:"-"`
	Type      string `json:"-"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Outcome   string `json:"-"`
}

// BillingService defines the interface for billing operations.
type BillingService interface {
	// CreateCheckoutSession starts a premium subscription checkout for the user.
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID) (*CheckoutSession, error)

	// CreatePortalSession returns a billing portal URL for the user.
	CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error)

	// HandleWebhook verifies and applies a Stripe webhook delivery.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)

	// GetPublicKey returns the Stripe publishable key.
	GetPublicKey() string
}

type billingService struct {
	userRepo  repository.UserRepository
	eventRepo repository.SubscriptionEventRepository
	gateway   PaymentGateway
	config    *config.StripeConfig
	appURL    string
}

// NewBillingService creates a new billing service.
func NewBillingService(
	userRepo repository.UserRepository,
	eventRepo repository.SubscriptionEventRepository,
	gateway PaymentGateway,
	cfg *config.StripeConfig,
	appURL string,
) BillingService {
	return &billingService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		gateway:   gateway,
		config:    cfg,
		appURL:    appURL,
	}
}

func (s *billingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID) (*CheckoutSession, error) {
	if s.config.PremiumPriceID == "" {
		return nil, ErrBillingNotConfigured
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.config.PremiumPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(user.ID.String()),
		SuccessURL:        stripe.String(s.appURL + "/dashboard?success=true"),
		CancelURL:         stripe.String(s.appURL + "/dashboard?canceled=true"),
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		params.Customer = user.StripeCustomerID
	} else {
		params.CustomerEmail = stripe.String(user.Email)
	}
	params.Context = ctx

	session, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  user.StripeCustomerID,
		ReturnURL: stripe.String(s.appURL + "/profile"),
	}
	params.Context = ctx

	session, err := s.gateway.CreatePortalSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return session.URL, nil
}

func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if signature == "" {
		webhooksTotal.WithLabelValues("unknown", outcomeInvalidSignature).Inc()
		return nil, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		slog.Warn("stripe webhook rejected", slog.String("error", err.Error()))
		webhooksTotal.WithLabelValues("unknown", outcomeInvalidSignature).Inc()
		return nil, ErrInvalidSignature
	}

	result := &WebhookResult{EventID: event.ID, Type: string(event.Type)}
	log := slog.With(slog.String("event_id", event.ID), slog.String("type", result.Type))

	req, err := transitionFromEvent(event)
	if err != nil {
		webhooksTotal.WithLabelValues(result.Type, outcomeError).Inc()
		return nil, apierrors.NewBadRequestError("invalid_event", "Malformed event payload")
	}
	if req == nil {
		log.Info("unhandled stripe event type")
		result.Outcome = string(models.OutcomeIgnored)
		webhooksTotal.WithLabelValues(result.Type, result.Outcome).Inc()
		return result, nil
	}

	res, err := s.eventRepo.ApplyTransition(ctx, *req)
	switch {
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrUnknownEvent):
		log.Info("stripe event not applicable to current subscription state")
		result.Outcome = string(models.OutcomeIgnored)
	case err != nil:
		webhooksTotal.WithLabelValues(result.Type, outcomeError).Inc()
		return nil, fmt.Errorf("failed to apply %s: %w", result.Type, err)
	case res.Duplicate:
		log.Info("duplicate stripe event")
		result.Duplicate = true
		result.Outcome = outcomeDuplicate
	default:
		result.Outcome = string(res.Event.Outcome)
		if res.Event.Outcome == models.OutcomeIgnored {
			log.Warn("stripe event did not match a user")
		} else {
			log.Info("subscription updated", slog.String("to", string(*res.Event.ToStatus)))
		}
	}

	webhooksTotal.WithLabelValues(result.Type, result.Outcome).Inc()
	return result, nil
}

func (s *billingService) GetPublicKey() string {
	if s.config != nil {
		return s.config.PublishableKey
	}
	return ""
}

func (s *billingService) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apierrors.ErrUnauthorized
	}
	return user, nil
}

// transitionFromEvent maps a verified Stripe event to a subscription
// transition. Event types without a transition yield nil.
func transitionFromEvent(event stripe.Event) (*models.TransitionRequest, error) {
	kind := models.EventKind(event.Type)
	if !kind.Handled() || kind == models.EventFreePlanSelected || event.Data == nil {
		return nil, nil
	}

	req := &models.TransitionRequest{ProviderEventID: event.ID, Kind: kind}

	switch kind {
	case models.EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		email := cs.CustomerEmail
		if email == "" && cs.CustomerDetails != nil {
			email = cs.CustomerDetails.Email
		}
		req.Email = normalizeEmail(email)
		if req.Email == "" {
			if id, err := uuid.Parse(cs.ClientReferenceID); err == nil {
				req.UserID = id
			}
		}
		if cs.Customer != nil {
			req.SetCustomerID = cs.Customer.ID
		}

	case models.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		if sub.Customer != nil {
			req.CustomerID = sub.Customer.ID
		}
	}

	return req, nil
}

// Compile-time check to ensure billingService implements BillingService.
var _ BillingService = (*billingService)(nil)
