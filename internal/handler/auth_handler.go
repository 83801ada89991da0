// Package handler provides HTTP handlers for the Weatherapp API.
package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

const oauthStateMaxAge = 300 // 5 minutes

// AuthHandler handles registration, login and Google sign-in.
type AuthHandler struct {
	authService  service.AuthService
	oauthService service.OAuthService
	sessionStore sessions.Store
	appURL       string
	validate     *validator.Validate
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	authService service.AuthService,
	oauthService service.OAuthService,
	sessionStore sessions.Store,
	appURL string,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		oauthService: oauthService,
		sessionStore: sessionStore,
		appURL:       appURL,
		validate:     newValidator(),
	}
}

// GoogleRoutes returns the browser-facing Google sign-in routes.
func (h *AuthHandler) GoogleRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GoogleStart)
	r.Get("/callback", h.GoogleCallback)
	return r
}

// RegisterHTTPRequest is the HTTP request body for registration.
type RegisterHTTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

// LoginHTTPRequest is the HTTP request body for login.
type LoginHTTPRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscription_status"`
	IsExtAuth          bool                      `json:"is_ext_auth"`
}

func toUserResponse(p middleware.Principal) UserResponse {
	return UserResponse{
		ID:                 p.UserID,
		Name:               p.Name,
		Email:              p.Email,
		SubscriptionStatus: p.SubscriptionStatus,
		IsExtAuth:          p.IsExtAuth,
	}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	_, err := h.authService.Register(r.Context(), service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "User registered successfully"})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	user, sessionID, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := middleware.SaveSession(w, r, h.sessionStore, sessionID); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]any{"user": toUserResponse(middleware.NewPrincipal(user, sessionID))})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionID(r, h.sessionStore); sessionID != "" {
		if err := h.authService.Logout(r.Context(), sessionID); err != nil {
			response.Error(w, err)
			return
		}
	}
	_ = middleware.ClearSession(w, r, h.sessionStore)
	response.NoContent(w)
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	response.OK(w, map[string]any{"user": toUserResponse(p)})
}

// GoogleStart handles GET /auth/google
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	if h.oauthService == nil || !h.oauthService.Enabled() {
		h.loginRedirect(w, r, "OAuth not configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.loginRedirect(w, r, "Failed to initialize OAuth")
		return
	}

	session, _ := h.sessionStore.Get(r, middleware.OAuthStateCookie)
	session.Values["state"] = state
	session.Options.MaxAge = oauthStateMaxAge
	if err := session.Save(r, w); err != nil {
		h.loginRedirect(w, r, "Failed to initialize OAuth")
		return
	}

	authURL, err := h.oauthService.GetAuthURL(state)
	if err != nil {
		h.loginRedirect(w, r, "OAuth not configured")
		return
	}

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /auth/google/callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthService == nil || !h.oauthService.Enabled() {
		h.loginRedirect(w, r, "OAuth not configured")
		return
	}

	query := r.URL.Query()
	if query.Get("error") != "" {
		h.loginRedirect(w, r, "OAuth authentication failed")
		return
	}
	code := query.Get("code")
	if code == "" {
		h.loginRedirect(w, r, "Missing authorization code")
		return
	}

	session, _ := h.sessionStore.Get(r, middleware.OAuthStateCookie)
	savedState, ok := session.Values["state"].(string)
	if !ok || savedState == "" || savedState != query.Get("state") {
		h.loginRedirect(w, r, "Invalid OAuth state")
		return
	}
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	_, sessionID, err := h.oauthService.HandleCallback(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrLocalAccountExists) {
			h.loginRedirect(w, r, service.ErrLocalAccountExists.Message)
			return
		}
		slog.Error("google sign-in failed", slog.String("error", err.Error()))
		h.loginRedirect(w, r, "OAuth authentication failed")
		return
	}

	if err := middleware.SaveSession(w, r, h.sessionStore, sessionID); err != nil {
		h.loginRedirect(w, r, "OAuth authentication failed")
		return
	}

	http.Redirect(w, r, h.appURL+"/dashboard", http.StatusFound)
}

func (h *AuthHandler) loginRedirect(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, h.appURL+"/login?error="+url.QueryEscape(message), http.StatusFound)
}

// generateState generates a random OAuth state for CSRF protection.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator errors to a field-keyed API error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.ErrBadRequest.WithMessage("Invalid request body")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return apierrors.NewValidationErrors(fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}
