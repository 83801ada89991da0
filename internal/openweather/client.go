// Package openweather is a client for the OpenWeatherMap REST API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/models"
)

// ErrNotFound is returned when OpenWeatherMap does not know the requested place.
var ErrNotFound = errors.New("openweather: location not found")

var upstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "weatherapp_weather_upstream_requests_total",
		Help: "Total OpenWeatherMap requests by endpoint and outcome",
	},
	[]string{"endpoint", "outcome"},
)

const maxBodySize = 4 << 20

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openweather: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openweather: status %d", e.StatusCode)
}

// Cache stores raw upstream response bodies.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client talks to the OpenWeatherMap 2.5 and one-call 3.0 APIs.
type Client struct {
	baseURL    string
	historyURL string
	apiKey     string
	units      string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache enables response caching. A zero ttl disables it.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = cache
			c.cacheTTL = ttl
		}
	}
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg config.WeatherConfig, opts ...Option) *Client {
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		historyURL: strings.TrimRight(cfg.HistoryBaseURL, "/"),
		apiKey:     cfg.APIKey,
		units:      units,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns current conditions for a place.
func (c *Client) Current(ctx context.Context, place models.Place) (*CurrentResponse, error) {
	var out CurrentResponse
	if err := c.get(ctx, "current", c.baseURL, "/weather", place.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Forecast returns the 5-day forecast in 3-hour steps.
func (c *Client) Forecast(ctx context.Context, place models.Place) (*ForecastResponse, error) {
	var out ForecastResponse
	if err := c.get(ctx, "forecast", c.baseURL, "/forecast", place.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DailyForecast returns up to days days of daily forecast.
func (c *Client) DailyForecast(ctx context.Context, place models.Place, days int) (*DailyResponse, error) {
	q := place.Query()
	q["cnt"] = strconv.Itoa(days)

	var out DailyResponse
	if err := c.get(ctx, "forecast_daily", c.baseURL, "/forecast/daily", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the observation closest to at for the given coordinates.
func (c *Client) History(ctx context.Context, coord Coord, at time.Time) (*HistoryResponse, error) {
	q := map[string]string{
		"lat": strconv.FormatFloat(coord.Lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(coord.Lon, 'f', -1, 64),
		"dt":  strconv.FormatInt(at.Unix(), 10),
	}

	var out HistoryResponse
	if err := c.get(ctx, "history", c.historyURL, "/onecall/timemachine", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs a GET request and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, endpoint, base, path string, query map[string]string, result any) error {
	params := url.Values{}
	for k, v := range query {
		params.Set(k, v)
	}
	params.Set("units", c.units)

	cacheKey := "owm:" + path + "?" + params.Encode()
	if body, ok := c.cached(ctx, cacheKey); ok {
		if err := json.Unmarshal(body, result); err == nil {
			upstreamRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return nil
		}
	}

	params.Set("appid", c.apiKey)
	reqURL := base + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("openweather %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		upstreamRequestsTotal.WithLabelValues(endpoint, "not_found").Inc()
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		upstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return &StatusError{StatusCode: resp.StatusCode, Message: eb.Message}
	}

	if err := json.Unmarshal(body, result); err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}

	upstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	c.store(ctx, cacheKey, body)
	return nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return body, true
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		slog.Warn("failed to cache weather response", slog.String("key", key), slog.String("error", err.Error()))
	}
}
