package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iqbaliqra/Weatherapp/internal/models"
)

// LocationRepository defines the interface for saved location data operations.
type LocationRepository interface {
	Create(ctx context.Context, loc *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Location, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type locationRepo struct {
	pool *pgxpool.Pool
}

// NewLocationRepository creates a new location repository.
func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepo{pool: pool}
}

// Create inserts a location. When the location is primary, the flag is
// cleared on the user's other locations in the same transaction.
func (r *locationRepo) Create(ctx context.Context, loc *models.Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if loc.IsPrimary {
		_, err := tx.Exec(ctx,
			`UPDATE locations SET is_primary = FALSE WHERE user_id = $1 AND is_primary`,
			loc.UserID,
		)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO locations (id, user_id, city, country, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err = tx.QueryRow(ctx, query,
		loc.ID,
		loc.UserID,
		loc.City,
		loc.Country,
		loc.IsPrimary,
	).Scan(&loc.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a location by ID.
func (r *locationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `
		SELECT id, user_id, city, country, is_primary, created_at
		FROM locations WHERE id = $1`

	var loc models.Location
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&loc.ID,
		&loc.UserID,
		&loc.City,
		&loc.Country,
		&loc.IsPrimary,
		&loc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListByUser lists a user's locations, primary first and then newest first.
func (r *locationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Location, error) {
	query := `
		SELECT id, user_id, city, country, is_primary, created_at
		FROM locations
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]*models.Location, 0)
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(
			&loc.ID,
			&loc.UserID,
			&loc.City,
			&loc.Country,
			&loc.IsPrimary,
			&loc.CreatedAt,
		); err != nil {
			return nil, err
		}
		locations = append(locations, &loc)
	}
	return locations, rows.Err()
}

// Delete removes a location.
func (r *locationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM locations WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
