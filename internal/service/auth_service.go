// Package service provides business logic implementations.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

const (
	bcryptCost           = 10
	defaultSessionExpiry = time.Hour
)

var (
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = apierrors.NewBadRequestError("user_exists", "User already exists.")
	// ErrInvalidCredentials is returned for unknown emails and accounts without a local password.
	ErrInvalidCredentials = apierrors.NewUnauthorizedError("Invalid credentials or external user.")
	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = apierrors.NewUnauthorizedError("Invalid password")
)

// RegisterRequest contains the fields for creating a local account.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// AuthService defines credential authentication and session operations.
type AuthService interface {
	// Register creates a local account. No session is issued.
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)

	// Login checks credentials and returns the user and a new session ID.
	Login(ctx context.Context, email, password string) (*models.User, string, error)

	// Logout deletes the session.
	Logout(ctx context.Context, sessionID string) error

	// ValidateSession returns the user that owns an unexpired session.
	ValidateSession(ctx context.Context, sessionID string) (*models.User, error)

	// CleanupSessions removes expired sessions.
	CleanupSessions(ctx context.Context) (int64, error)
}

type authService struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	sessionExpiry time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sessionExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		sessionExpiry: sessionExpiry,
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	user := &models.User{
		Email:              email,
		PasswordHash:       &hashed,
		Name:               strings.TrimSpace(req.Name),
		SubscriptionStatus: models.StatusInactive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || user.IsExtAuth || !user.HasPassword() {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidPassword
	}

	sessionID, err := createSession(ctx, s.sessionRepo, user.ID, s.sessionExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	return user, sessionID, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessionRepo.Delete(ctx, sessionID)
}

func (s *authService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, apierrors.ErrUnauthorized
	}

	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.Expired(time.Now()) {
		return nil, apierrors.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, apierrors.ErrUnauthorized
	}
	return user, nil
}

func (s *authService) CleanupSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx)
}

// createSession stores a new session for userID and returns its ID.
func createSession(ctx context.Context, repo repository.SessionRepository, userID uuid.UUID, expiry time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	sessionID := base64.RawURLEncoding.EncodeToString(b)

	if expiry <= 0 {
		expiry = defaultSessionExpiry
	}

	session := &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(expiry),
	}
	if err := repo.Create(ctx, session); err != nil {
		return "", err
	}
	return sessionID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Compile-time check to ensure authService implements AuthService.
var _ AuthService = (*authService)(nil)
