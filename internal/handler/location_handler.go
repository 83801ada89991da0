package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

// LocationHandler handles saved location requests.
type LocationHandler struct {
	locationService service.LocationService
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(locationService service.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// Routes returns a chi router with location routes.
func (h *LocationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
	return r
}

// CreateLocationHTTPRequest is the HTTP request body for saving a location.
type CreateLocationHTTPRequest struct {
	City      string `json:"city"`
	Country   string `json:"country"`
	IsPrimary bool   `json:"is_primary"`
}

// List handles GET /api/locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	locations, err := h.locationService.List(r.Context(), p.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, locations)
}

// Create handles POST /api/locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	var req CreateLocationHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	loc, err := h.locationService.Create(r.Context(), service.CreateLocationRequest{
		UserID:    p.UserID,
		City:      req.City,
		Country:   req.Country,
		IsPrimary: req.IsPrimary,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, loc)
}

// Delete handles DELETE /api/locations/{id}
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	if err := h.locationService.Delete(r.Context(), p.UserID, id); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]bool{"success": true})
}
