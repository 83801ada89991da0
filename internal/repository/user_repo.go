// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iqbaliqra/Weatherapp/internal/models"
)

var (
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned when a write addresses a row that does not exist.
	ErrNotFound = errors.New("record not found")
)

const uniqueViolation = "23505"

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `id, email, password_hash, name, is_ext_auth, subscription_status,
		       stripe_customer_id, last_login_at, created_at, updated_at`

// Create inserts a new user. A taken email yields ErrDuplicate.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, is_ext_auth, subscription_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.StatusInactive
	}

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.IsExtAuth,
		user.SubscriptionStatus,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a user by ID.
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
func (r *userRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, customerID))
}

// UpdateLastLogin updates the last login timestamp.
func (r *userRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// scanUser scans one user row. A missing row yields nil, nil.
func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.IsExtAuth,
		&user.SubscriptionStatus,
		&user.StripeCustomerID,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
