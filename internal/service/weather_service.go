package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	"github.com/iqbaliqra/Weatherapp/internal/openweather"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

const extendedForecastDays = 16

// ErrCityNotFound is returned when the weather provider does not know a place.
var ErrCityNotFound = apierrors.NewNotFoundError("City not found")

// WeatherProvider is the upstream weather API.
type WeatherProvider interface {
	Current(ctx context.Context, place models.Place) (*openweather.CurrentResponse, error)
	Forecast(ctx context.Context, place models.Place) (*openweather.ForecastResponse, error)
	DailyForecast(ctx context.Context, place models.Place, days int) (*openweather.DailyResponse, error)
	History(ctx context.Context, coord openweather.Coord, at time.Time) (*openweather.HistoryResponse, error)
}

// WeatherService defines weather retrieval.
type WeatherService interface {
	// Current returns normalized current conditions for a place.
	Current(ctx context.Context, place models.Place) (*models.CurrentConditions, error)

	// Forecast returns the daily and hourly forecast views for a place.
	Forecast(ctx context.Context, place models.Place) (*models.Forecast, error)

	// ForLocations returns weather for every saved location of the user,
	// keyed by city-country. Extended data depends on status.
	ForLocations(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) (map[string]*models.WeatherData, error)
}

// WeatherOptions tunes WeatherService.
type WeatherOptions struct {
	MaxConcurrency int
	HistoryDays    int
}

type weatherService struct {
	provider     WeatherProvider
	locationRepo repository.LocationRepository
	opts         WeatherOptions
	now          func() time.Time
}

// NewWeatherService creates a new weather service.
func NewWeatherService(
	provider WeatherProvider,
	locationRepo repository.LocationRepository,
	opts WeatherOptions,
) WeatherService {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &weatherService{
		provider:     provider,
		locationRepo: locationRepo,
		opts:         opts,
		now:          time.Now,
	}
}

func (s *weatherService) Current(ctx context.Context, place models.Place) (*models.CurrentConditions, error) {
	resp, err := s.provider.Current(ctx, place)
	if err != nil {
		return nil, upstreamError(err)
	}
	cur := openweather.NormalizeCurrent(resp)
	return &cur, nil
}

func (s *weatherService) Forecast(ctx context.Context, place models.Place) (*models.Forecast, error) {
	resp, err := s.provider.Forecast(ctx, place)
	if err != nil {
		return nil, upstreamError(err)
	}
	return &models.Forecast{
		City:    resp.City.Name,
		Country: resp.City.Country,
		Daily:   openweather.Daily(resp, openweather.ForecastDays),
		Hourly:  openweather.Hourly(resp, openweather.HourlySamples),
	}, nil
}

func (s *weatherService) ForLocations(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) (map[string]*models.WeatherData, error) {
	locations, err := s.locationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	features := status.Features()
	results := make(map[string]*models.WeatherData, len(locations))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)

	for _, loc := range locations {
		loc := loc
		g.Go(func() error {
			data, err := s.locationWeather(gctx, loc, features)
			if err != nil {
				return err
			}
			mu.Lock()
			results[loc.Key()] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// locationWeather fetches the required current and forecast data and, when
// features allow, the optional extended forecast and history.
func (s *weatherService) locationWeather(ctx context.Context, loc *models.Location, features models.Features) (*models.WeatherData, error) {
	place := models.Place{City: loc.City, Country: loc.Country}

	current, err := s.provider.Current(ctx, place)
	if err != nil {
		return nil, upstreamError(err)
	}
	forecast, err := s.provider.Forecast(ctx, place)
	if err != nil {
		return nil, upstreamError(err)
	}

	data := &models.WeatherData{
		CurrentConditions: openweather.NormalizeCurrent(current),
		Forecast5:         openweather.Daily(forecast, openweather.ForecastDays),
	}
	data.City = loc.City
	data.Country = loc.Country

	log := slog.With(slog.String("location", loc.Key()))

	if features.ExtendedForecast {
		daily, err := s.provider.DailyForecast(ctx, place, extendedForecastDays)
		if err != nil {
			log.Warn("extended forecast unavailable", slog.String("error", err.Error()))
		} else {
			data.Forecast16 = openweather.NormalizeDaily(daily)
		}
	}

	if features.Historical && s.opts.HistoryDays > 0 {
		history, err := s.history(ctx, current.Coord)
		if err != nil {
			log.Warn("historical data unavailable", slog.String("error", err.Error()))
		} else {
			data.Historical = history
		}
	}

	return data, nil
}

func (s *weatherService) history(ctx context.Context, coord openweather.Coord) ([]models.ForecastDay, error) {
	now := s.now()
	resps := make([]*openweather.HistoryResponse, 0, s.opts.HistoryDays)
	for day := 1; day <= s.opts.HistoryDays; day++ {
		resp, err := s.provider.History(ctx, coord, now.Add(-time.Duration(day)*24*time.Hour))
		if err != nil {
			return nil, err
		}
		resps = append(resps, resp)
	}
	return openweather.NormalizeHistory(resps), nil
}

// upstreamError maps provider failures to API errors.
func upstreamError(err error) error {
	if errors.Is(err, openweather.ErrNotFound) {
		return ErrCityNotFound
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	slog.Error("weather provider request failed", slog.String("error", err.Error()))
	return apierrors.ErrUpstream
}

// Compile-time checks.
var (
	_ WeatherService  = (*weatherService)(nil)
	_ WeatherProvider = (*openweather.Client)(nil)
)
