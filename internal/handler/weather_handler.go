package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

// WeatherHandler handles weather lookups.
type WeatherHandler struct {
	weatherService service.WeatherService
}

// NewWeatherHandler creates a new weather handler.
func NewWeatherHandler(weatherService service.WeatherService) *WeatherHandler {
	return &WeatherHandler{weatherService: weatherService}
}

// Routes returns a chi router with weather routes.
func (h *WeatherHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/current", h.Current)
	r.Get("/forecast", h.Forecast)
	r.Get("/locations", h.Locations)
	return r
}

// Current handles GET /api/weather/current
func (h *WeatherHandler) Current(w http.ResponseWriter, r *http.Request) {
	place, err := placeFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	cur, err := h.weatherService.Current(r.Context(), place)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, cur)
}

// Forecast handles GET /api/weather/forecast
func (h *WeatherHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	place, err := placeFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	fc, err := h.weatherService.Forecast(r.Context(), place)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, fc)
}

// Locations handles GET /api/weather/locations
func (h *WeatherHandler) Locations(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	data, err := h.weatherService.ForLocations(r.Context(), p.UserID, p.SubscriptionStatus)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, data)
}

// placeFromQuery reads either city (with optional country) or lat and lon.
// A city given as "Paris,FR" is split into city and country.
func placeFromQuery(r *http.Request) (models.Place, error) {
	q := r.URL.Query()

	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr != "" || lonStr != "" {
		lat, err := parseCoord(latStr, 90)
		if err != nil {
			return models.Place{}, apierrors.NewValidationError("lat", "lat must be a number between -90 and 90")
		}
		lon, err := parseCoord(lonStr, 180)
		if err != nil {
			return models.Place{}, apierrors.NewValidationError("lon", "lon must be a number between -180 and 180")
		}
		return models.Place{Lat: lat, Lon: lon, HasGeo: true}, nil
	}

	city := strings.TrimSpace(q.Get("city"))
	country := strings.TrimSpace(q.Get("country"))
	if country == "" {
		if c, cc, ok := strings.Cut(city, ","); ok {
			city, country = strings.TrimSpace(c), strings.TrimSpace(cc)
		}
	}
	if city == "" {
		return models.Place{}, service.ErrMissingCityOrCountry
	}
	return models.Place{City: city, Country: country}, nil
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.Abs(v) > limit {
		return 0, strconv.ErrRange
	}
	return v, nil
}
