package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	registerFunc func(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	loginFunc    func(ctx context.Context, email, password string) (*models.User, string, error)
	logoutFunc   func(ctx context.Context, sessionID string) error
	validateFunc func(ctx context.Context, sessionID string) (*models.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, req service.RegisterRequest) (*models.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return &models.User{ID: uuid.New(), Email: req.Email, Name: req.Name}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil, "", nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) CleanupSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

// mockOAuthService is a mock implementation of OAuthService for testing.
type mockOAuthService struct {
	enabled      bool
	callbackFunc func(ctx context.Context, code string) (*models.User, string, error)
}

func (m *mockOAuthService) Enabled() bool {
	return m.enabled
}

func (m *mockOAuthService) GetAuthURL(state string) (string, error) {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state, nil
}

func (m *mockOAuthService) HandleCallback(ctx context.Context, code string) (*models.User, string, error) {
	if m.callbackFunc != nil {
		return m.callbackFunc(ctx, code)
	}
	return nil, "", nil
}

// mockPlanService is a mock implementation of PlanService for testing.
type mockPlanService struct {
	selectFunc   func(ctx context.Context, userID uuid.UUID, plan string) (*service.PlanSelection, error)
	activateFunc func(ctx context.Context, userID uuid.UUID) error
	historyFunc  func(ctx context.Context, userID uuid.UUID) ([]*models.SubscriptionEvent, error)
}

func (m *mockPlanService) SelectPlan(ctx context.Context, userID uuid.UUID, plan string) (*service.PlanSelection, error) {
	if m.selectFunc != nil {
		return m.selectFunc(ctx, userID, plan)
	}
	return nil, nil
}

func (m *mockPlanService) ActivateFreePlan(ctx context.Context, userID uuid.UUID) error {
	if m.activateFunc != nil {
		return m.activateFunc(ctx, userID)
	}
	return nil
}

func (m *mockPlanService) History(ctx context.Context, userID uuid.UUID) ([]*models.SubscriptionEvent, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, userID)
	}
	return []*models.SubscriptionEvent{}, nil
}

// mockBillingService is a mock implementation of BillingService for testing.
type mockBillingService struct {
	checkoutFunc func(ctx context.Context, userID uuid.UUID) (*service.CheckoutSession, error)
	portalFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	webhookFunc  func(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

func (m *mockBillingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID) (*service.CheckoutSession, error) {
	if m.checkoutFunc != nil {
		return m.checkoutFunc(ctx, userID)
	}
	return &service.CheckoutSession{SessionID: "cs_test_123", URL: "https://checkout.stripe.com/c/pay/cs_test_123"}, nil
}

func (m *mockBillingService) CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.portalFunc != nil {
		return m.portalFunc(ctx, userID)
	}
	return "https://billing.stripe.com/p/session/test", nil
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error) {
	if m.webhookFunc != nil {
		return m.webhookFunc(ctx, payload, signature)
	}
	return &service.WebhookResult{}, nil
}

func (m *mockBillingService) GetPublicKey() string {
	return "pk_test_123"
}

// mockLocationService is a mock implementation of LocationService for testing.
type mockLocationService struct {
	listFunc   func(ctx context.Context, userID uuid.UUID) ([]*models.Location, error)
	createFunc func(ctx context.Context, req service.CreateLocationRequest) (*models.Location, error)
	deleteFunc func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockLocationService) List(ctx context.Context, userID uuid.UUID) ([]*models.Location, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return []*models.Location{}, nil
}

func (m *mockLocationService) Create(ctx context.Context, req service.CreateLocationRequest) (*models.Location, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockLocationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, id)
	}
	return nil
}

// mockWeatherService is a mock implementation of WeatherService for testing.
type mockWeatherService struct {
	currentFunc   func(ctx context.Context, place models.Place) (*models.CurrentConditions, error)
	forecastFunc  func(ctx context.Context, place models.Place) (*models.Forecast, error)
	locationsFunc func(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) (map[string]*models.WeatherData, error)
}

func (m *mockWeatherService) Current(ctx context.Context, place models.Place) (*models.CurrentConditions, error) {
	if m.currentFunc != nil {
		return m.currentFunc(ctx, place)
	}
	return &models.CurrentConditions{City: place.City, Country: place.Country}, nil
}

func (m *mockWeatherService) Forecast(ctx context.Context, place models.Place) (*models.Forecast, error) {
	if m.forecastFunc != nil {
		return m.forecastFunc(ctx, place)
	}
	return &models.Forecast{City: place.City, Country: place.Country}, nil
}

func (m *mockWeatherService) ForLocations(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) (map[string]*models.WeatherData, error) {
	if m.locationsFunc != nil {
		return m.locationsFunc(ctx, userID, status)
	}
	return map[string]*models.WeatherData{}, nil
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(ctx context.Context) error {
	return m.err
}
