package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	"github.com/iqbaliqra/Weatherapp/internal/models"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
)

const testAppURL = "http://localhost:3000"

type testServer struct {
	router    http.Handler
	store     *sessions.CookieStore
	auth      *mockAuthService
	oauth     *mockOAuthService
	plans     *mockPlanService
	billing   *mockBillingService
	locations *mockLocationService
	weather   *mockWeatherService
	pingers   map[string]Pinger
	sessions  map[string]*models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store:     middleware.NewSessionStore("test-session-secret-at-least-32-bytes", false, time.Hour),
		auth:      &mockAuthService{},
		oauth:     &mockOAuthService{enabled: true},
		plans:     &mockPlanService{},
		billing:   &mockBillingService{},
		locations: &mockLocationService{},
		weather:   &mockWeatherService{},
		pingers:   map[string]Pinger{"database": mockPinger{}, "redis": mockPinger{}},
		sessions:  make(map[string]*models.User),
	}
	ts.auth.validateFunc = func(ctx context.Context, sessionID string) (*models.User, error) {
		if u, ok := ts.sessions[sessionID]; ok {
			return u, nil
		}
		return nil, apierrors.ErrUnauthorized
	}

	ts.router = NewRouter(RouterConfig{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		AppURL:          testAppURL,
		SessionStore:    ts.store,
		ValidateSession: ts.auth.ValidateSession,
		Auth:            NewAuthHandler(ts.auth, ts.oauth, ts.store, testAppURL),
		Plans:           NewPlanHandler(ts.plans),
		Billing:         NewBillingHandler(ts.billing),
		Locations:       NewLocationHandler(ts.locations),
		Weather:         NewWeatherHandler(ts.weather),
		Health:          NewHealthHandler(ts.pingers),
	})
	return ts
}

// login registers a server-side session for user and returns its cookies.
func (ts *testServer) login(t *testing.T, user *models.User) []*http.Cookie {
	t.Helper()
	sessionID := "sess-" + user.ID.String()
	ts.sessions[sessionID] = user

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	require.NoError(t, middleware.SaveSession(rec, req, ts.store, sessionID))
	return rec.Result().Cookies()
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func newUser(status models.SubscriptionStatus) *models.User {
	return &models.User{
		ID:                 uuid.New(),
		Email:              "ada@example.com",
		Name:               "Ada",
		SubscriptionStatus: status,
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/locations"},
		{http.MethodPost, "/api/locations"},
		{http.MethodDelete, "/api/locations/" + uuid.NewString()},
		{http.MethodPost, "/api/select-plan"},
		{http.MethodPost, "/api/activate-free-plan"},
		{http.MethodGet, "/api/subscription"},
		{http.MethodPost, "/api/stripe/create-checkout-session"},
		{http.MethodPost, "/api/stripe/create-portal-session"},
		{http.MethodGet, "/api/weather/current?city=Paris"},
		{http.MethodGet, "/api/weather/locations"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := ts.do(t, rt.method, rt.path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
		})
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	decodeData(t, rec, &status)
	assert.Equal(t, "connected", status["database"])
	assert.Equal(t, "connected", status["redis"])

	ts.pingers["redis"] = mockPinger{err: errors.New("connection refused")}
	rec = ts.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	decodeData(t, rec, &status)
	assert.Equal(t, "unavailable", status["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health", nil, nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weatherapp_http_requests_total")
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}
