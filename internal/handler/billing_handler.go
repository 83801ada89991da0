package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

// maxWebhookBody is the largest webhook payload accepted.
const maxWebhookBody = 1 << 20

// BillingHandler handles Stripe checkout, portal and webhook requests.
type BillingHandler struct {
	billingService service.BillingService
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billingService service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// Register mounts the session-protected billing routes on r. The webhook
// is registered separately because Stripe calls it without a session.
func (h *BillingHandler) Register(r chi.Router) {
	r.Get("/stripe/config", h.Config)
	r.Post("/stripe/create-checkout-session", h.CreateCheckoutSession)
	r.Post("/stripe/create-portal-session", h.CreatePortalSession)
}

// WebhookAckResponse acknowledges a webhook delivery.
type WebhookAckResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Config handles GET /api/stripe/config
func (h *BillingHandler) Config(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"publishable_key": h.billingService.GetPublicKey()})
}

// CreateCheckoutSession handles POST /api/stripe/create-checkout-session
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	session, err := h.billingService.CreateCheckoutSession(r.Context(), p.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, session)
}

// CreatePortalSession handles POST /api/stripe/create-portal-session
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	url, err := h.billingService.CreatePortalSession(r.Context(), p.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]string{"url": url})
}

// Webhook handles POST /api/stripe/webhook
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, apierrors.ErrBadRequest.WithMessage("Request body too large"))
			return
		}
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Failed to read request body"))
		return
	}

	result, err := h.billingService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, WebhookAckResponse{Received: true, Duplicate: result.Duplicate})
}
