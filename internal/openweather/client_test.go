package openweather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/models"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.WeatherConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/data/2.5",
		HistoryBaseURL: srv.URL + "/data/3.0",
		Timeout:        5 * time.Second,
	}, opts...)
}

func TestClient_Current(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "London,GB", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"coord": {"lat": 51.51, "lon": -0.13},
			"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
			"main": {"temp": 15.2, "feels_like": 14.1, "temp_min": 13.9, "temp_max": 16.4, "humidity": 70},
			"wind": {"speed": 3.6},
			"timezone": 3600,
			"name": "London",
			"sys": {"country": "GB"}
		}`))
	})

	resp, err := client.Current(context.Background(), models.Place{City: "London", Country: "GB"})
	require.NoError(t, err)
	assert.Equal(t, "London", resp.Name)
	assert.Equal(t, "GB", resp.Sys.Country)
	assert.InDelta(t, 51.51, resp.Coord.Lat, 0.001)
	assert.Equal(t, "broken clouds", resp.Weather[0].Description)
}

func TestClient_ForecastByCoordinates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/forecast", r.URL.Path)
		assert.Equal(t, "48.85", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.35", r.URL.Query().Get("lon"))
		assert.Empty(t, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"city": {"name": "Paris", "country": "FR", "timezone": 7200}, "list": [{"dt": 1717200000, "main": {"temp": 20}}]}`))
	})

	resp, err := client.Forecast(context.Background(), models.Place{Lat: 48.85, Lon: 2.35, HasGeo: true})
	require.NoError(t, err)
	assert.Equal(t, 7200, resp.City.Timezone)
	require.Len(t, resp.List, 1)
}

func TestClient_DailyAndHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/2.5/forecast/daily":
			assert.Equal(t, "16", r.URL.Query().Get("cnt"))
			_, _ = w.Write([]byte(`{"list": [{"dt": 1717200000, "temp": {"day": 20, "min": 15, "max": 25}}]}`))
		case "/data/3.0/onecall/timemachine":
			assert.Equal(t, "1717200000", r.URL.Query().Get("dt"))
			_, _ = w.Write([]byte(`{"timezone_offset": 0, "data": [{"dt": 1717200000, "temp": 18.5}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	daily, err := client.DailyForecast(context.Background(), models.Place{City: "Paris"}, 16)
	require.NoError(t, err)
	require.Len(t, daily.List, 1)
	assert.InDelta(t, 25, daily.List[0].Temp.Max, 0.001)

	hist, err := client.History(context.Background(), Coord{Lat: 1, Lon: 2}, time.Unix(june1, 0))
	require.NoError(t, err)
	require.Len(t, hist.Data, 1)
	assert.InDelta(t, 18.5, hist.Data[0].Temp, 0.001)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "city not found",
			status: http.StatusNotFound,
			body:   `{"cod": "404", "message": "city not found"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name:   "invalid key",
			status: http.StatusUnauthorized,
			body:   `{"cod": 401, "message": "Invalid API key"}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
				assert.Equal(t, "Invalid API key", se.Message)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Current(context.Background(), models.Place{City: "Atlantis"})
			tt.check(t, err)
		})
	}
}

func TestClient_Cache(t *testing.T) {
	var hits atomic.Int32
	cache := newMemoryCache()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name": "Oslo", "sys": {"country": "NO"}}`))
	}, WithCache(cache, time.Minute))

	for i := 0; i < 3; i++ {
		resp, err := client.Current(context.Background(), models.Place{City: "Oslo"})
		require.NoError(t, err)
		assert.Equal(t, "Oslo", resp.Name)
	}
	assert.Equal(t, int32(1), hits.Load())

	require.Len(t, cache.items, 1)
	for key := range cache.items {
		assert.True(t, strings.HasPrefix(key, "owm:/weather?"))
		assert.NotContains(t, key, "test-key")
	}
}

func TestClient_CacheDisabledWithZeroTTL(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name": "Oslo"}`))
	}, WithCache(newMemoryCache(), 0))

	for i := 0; i < 2; i++ {
		_, err := client.Current(context.Background(), models.Place{City: "Oslo"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}
