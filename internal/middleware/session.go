// Package middleware provides HTTP middleware for the Weatherapp API.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
)

// Cookie names.
const (
	SessionCookieName = "weatherapp_session"
	OAuthStateCookie  = "weatherapp_oauth_state"
)

const sessionIDValue = "session_id"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated user of a request.
type Principal struct {
	UserID             uuid.UUID
	Email              string
	Name               string
	IsExtAuth          bool
	SubscriptionStatus models.SubscriptionStatus
	SessionID          string
}

// NewPrincipal builds the principal for a user and their session.
func NewPrincipal(user *models.User, sessionID string) Principal {
	return Principal{
		UserID:             user.ID,
		Email:              user.Email,
		Name:               user.Name,
		IsExtAuth:          user.IsExtAuth,
		SubscriptionStatus: user.SubscriptionStatus,
		SessionID:          sessionID,
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// CurrentUser returns the principal set by RequireSession.
func CurrentUser(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// SessionValidator resolves a session ID to its user.
type SessionValidator func(ctx context.Context, sessionID string) (*models.User, error)

// NewSessionStore creates the signed cookie store used for sessions and OAuth state.
func NewSessionStore(secret string, secure bool, maxAge time.Duration) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// RequireSession rejects requests without a valid session cookie and puts
// the Principal in the request context.
func RequireSession(store sessions.Store, validate SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := SessionID(r, store)
			if sessionID == "" {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			user, err := validate(r.Context(), sessionID)
			if err != nil {
				if !apierrors.IsAPIError(err) {
					response.Error(w, err)
					return
				}
				// Stale cookie; drop it so the client stops sending it.
				_ = ClearSession(w, r, store)
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			ctx := WithPrincipal(r.Context(), NewPrincipal(user, sessionID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the session ID stored in the request's cookie, if any.
func SessionID(r *http.Request, store sessions.Store) string {
	session, err := store.Get(r, SessionCookieName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[sessionIDValue].(string)
	return id
}

// SaveSession writes the session cookie.
func SaveSession(w http.ResponseWriter, r *http.Request, store sessions.Store, sessionID string) error {
	session, _ := store.Get(r, SessionCookieName)
	session.Values[sessionIDValue] = sessionID
	return session.Save(r, w)
}

// ClearSession expires the session cookie.
func ClearSession(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, _ := store.Get(r, SessionCookieName)
	delete(session.Values, sessionIDValue)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
