package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	// ErrLocalAccountExists is returned when a Google sign-in matches a password account.
	ErrLocalAccountExists = apierrors.NewConflictError("Use email/password to login.")
	// ErrOAuthNotConfigured is returned when Google credentials are missing.
	ErrOAuthNotConfigured = apierrors.ErrServiceUnavailable.WithMessage("Google sign-in is not configured")
)

// OAuthUserInfo contains user information fetched from Google.
type OAuthUserInfo struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// OAuthService defines Google sign-in.
type OAuthService interface {
	// Enabled reports whether Google credentials are configured.
	Enabled() bool

	// GetAuthURL returns the Google authorization URL for the given state.
	GetAuthURL(state string) (string, error)

	// HandleCallback exchanges the code and returns the user and a new session ID.
	HandleCallback(ctx context.Context, code string) (*models.User, string, error)
}

// HTTPClient interface for making HTTP requests (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type oauthService struct {
	config        *oauth2.Config
	userInfoURL   string
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	sessionExpiry time.Duration
	httpClient    HTTPClient
}

// NewOAuthService creates a new Google sign-in service.
func NewOAuthService(
	cfg *config.AuthConfig,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
) OAuthService {
	var oc *oauth2.Config
	if cfg.OAuthGoogleID != "" && cfg.OAuthGoogleSecret != "" {
		oc = &oauth2.Config{
			ClientID:     cfg.OAuthGoogleID,
			ClientSecret: cfg.OAuthGoogleSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.OAuthCallbackURL + "/auth/google/callback",
			Scopes:       []string{"email", "profile"},
		}
	}

	return &oauthService{
		config:        oc,
		userInfoURL:   googleUserInfoURL,
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		sessionExpiry: cfg.SessionExpiry,
		httpClient:    http.DefaultClient,
	}
}

// NewOAuthServiceWithClient creates a new OAuth service with a custom HTTP client.
// This is primarily used for testing.
func NewOAuthServiceWithClient(
	cfg *config.AuthConfig,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	httpClient HTTPClient,
) OAuthService {
	svc := NewOAuthService(cfg, userRepo, sessionRepo).(*oauthService)
	svc.httpClient = httpClient
	return svc
}

func (s *oauthService) Enabled() bool {
	return s.config != nil
}

func (s *oauthService) GetAuthURL(state string) (string, error) {
	if s.config == nil {
		return "", ErrOAuthNotConfigured
	}
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, code string) (*models.User, string, error) {
	if s.config == nil {
		return nil, "", ErrOAuthNotConfigured
	}

	if hc, ok := s.httpClient.(*http.Client); ok {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("token exchange failed: %w", err)
	}

	info, err := s.fetchGoogleUser(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch user info: %w", err)
	}

	user, err := s.findOrCreateUser(ctx, info)
	if err != nil {
		return nil, "", err
	}

	sessionID, err := createSession(ctx, s.sessionRepo, user.ID, s.sessionExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	return user, sessionID, nil
}

func (s *oauthService) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API returned status %d", resp.StatusCode)
	}

	var data struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode Google user response: %w", err)
	}

	return &OAuthUserInfo{
		ID:        data.ID,
		Email:     data.Email,
		Name:      data.Name,
		AvatarURL: data.Picture,
	}, nil
}

// findOrCreateUser returns the external account for info.Email, creating it
// on first sign-in. An existing password account is never taken over.
func (s *oauthService) findOrCreateUser(ctx context.Context, info *OAuthUserInfo) (*models.User, error) {
	email := normalizeEmail(info.Email)
	if email == "" {
		return nil, apierrors.NewBadRequestError("missing_email", "Google account has no email address")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		if !user.IsExtAuth {
			return nil, ErrLocalAccountExists
		}
		return user, nil
	}

	user = &models.User{
		Email:              email,
		Name:               info.Name,
		IsExtAuth:          true,
		SubscriptionStatus: models.StatusInactive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent first sign-in.
			return s.findOrCreateUser(ctx, info)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Compile-time check to ensure oauthService implements OAuthService.
var _ OAuthService = (*oauthService)(nil)
