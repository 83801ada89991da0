package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

var (
	// ErrMissingCityOrCountry is returned when a location lacks a city or country.
	ErrMissingCityOrCountry = apierrors.NewBadRequestError("missing_city_or_country", "Missing city or country")
	// ErrLocationNotFound is returned when a location does not exist.
	ErrLocationNotFound = apierrors.NewNotFoundError("Location not found")
)

// CreateLocationRequest contains the fields for saving a location.
type CreateLocationRequest struct {
	UserID    uuid.UUID
	City      string
	Country   string
	IsPrimary bool
}

// LocationService defines saved location operations.
type LocationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]*models.Location, error)
	Create(ctx context.Context, req CreateLocationRequest) (*models.Location, error)
	// Delete removes a location owned by userID.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type locationService struct {
	locationRepo repository.LocationRepository
}

// NewLocationService creates a new location service.
func NewLocationService(locationRepo repository.LocationRepository) LocationService {
	return &locationService{locationRepo: locationRepo}
}

func (s *locationService) List(ctx context.Context, userID uuid.UUID) ([]*models.Location, error) {
	locations, err := s.locationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	if locations == nil {
		locations = []*models.Location{}
	}
	return locations, nil
}

func (s *locationService) Create(ctx context.Context, req CreateLocationRequest) (*models.Location, error) {
	city := strings.TrimSpace(req.City)
	country := strings.TrimSpace(req.Country)
	if city == "" || country == "" {
		return nil, ErrMissingCityOrCountry
	}

	loc := &models.Location{
		UserID:    req.UserID,
		City:      city,
		Country:   country,
		IsPrimary: req.IsPrimary,
	}
	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return loc, nil
}

func (s *locationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	loc, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get location: %w", err)
	}
	if loc == nil {
		return ErrLocationNotFound
	}
	if !loc.IsOwnedBy(userID) {
		return apierrors.ErrForbidden
	}

	if err := s.locationRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

// Compile-time check to ensure locationService implements LocationService.
var _ LocationService = (*locationService)(nil)
