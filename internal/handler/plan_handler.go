package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

// PlanHandler handles plan selection requests.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// Register mounts the plan routes on r.
func (h *PlanHandler) Register(r chi.Router) {
	r.Post("/select-plan", h.SelectPlan)
	r.Post("/activate-free-plan", h.ActivateFreePlan)
	r.Get("/subscription", h.Subscription)
}

// SelectPlanHTTPRequest is the HTTP request body for choosing a plan.
type SelectPlanHTTPRequest struct {
	Plan string `json:"plan"`
}

// SubscriptionResponse describes the user's plan and what it unlocks.
type SubscriptionResponse struct {
	Status   models.SubscriptionStatus   `json:"status"`
	Plan     string                      `json:"plan"`
	Features models.Features             `json:"features"`
	History  []*models.SubscriptionEvent `json:"history"`
}

// SelectPlan handles POST /api/select-plan
func (h *PlanHandler) SelectPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	var req SelectPlanHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	sel, err := h.planService.SelectPlan(r.Context(), p.UserID, req.Plan)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, sel)
}

// ActivateFreePlan handles POST /api/activate-free-plan
func (h *PlanHandler) ActivateFreePlan(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	if err := h.planService.ActivateFreePlan(r.Context(), p.UserID); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "Free plan activated"})
}

// Subscription handles GET /api/subscription
func (h *PlanHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	history, err := h.planService.History(r.Context(), p.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, SubscriptionResponse{
		Status:   p.SubscriptionStatus,
		Plan:     p.SubscriptionStatus.PlanName(),
		Features: p.SubscriptionStatus.Features(),
		History:  history,
	})
}
