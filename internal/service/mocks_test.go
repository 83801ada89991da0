package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"

	"github.com/iqbaliqra/Weatherapp/internal/models"
	"github.com/iqbaliqra/Weatherapp/internal/openweather"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
)

// Mock repositories for testing
type mockUserRepo struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	byEmail    map[string]*models.User
	createErr  error
	lastLogins int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.StatusInactive
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email], nil
}

func (m *mockUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byCustomer(customerID), nil
}

func (m *mockUserRepo) byCustomer(customerID string) *models.User {
	for _, u := range m.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u
		}
	}
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
		m.lastLogins++
	}
	return nil
}

func (m *mockUserRepo) add(user *models.User) *models.User {
	if err := m.Create(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

type mockSessionRepo struct {
	sessions  map[string]*models.Session
	createErr error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions: make(map[string]*models.Session),
	}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	return m.sessions[id], nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type mockLocationRepo struct {
	locations map[uuid.UUID]*models.Location
	listErr   error
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[uuid.UUID]*models.Location)}
}

func (m *mockLocationRepo) Create(ctx context.Context, loc *models.Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	if loc.IsPrimary {
		for _, other := range m.locations {
			if other.UserID == loc.UserID {
				other.IsPrimary = false
			}
		}
	}
	loc.CreatedAt = time.Now()
	m.locations[loc.ID] = loc
	return nil
}

func (m *mockLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	return m.locations[id], nil
}

func (m *mockLocationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Location, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.Location, 0)
	for _, l := range m.locations {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockLocationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.locations, id)
	return nil
}

// mockEventRepo applies transitions against a mockUserRepo the way the
// database implementation does.
type mockEventRepo struct {
	users    *mockUserRepo
	seen     map[string]bool
	events   []*models.SubscriptionEvent
	applyErr error
}

func newMockEventRepo(users *mockUserRepo) *mockEventRepo {
	return &mockEventRepo{users: users, seen: make(map[string]bool)}
}

func (m *mockEventRepo) ApplyTransition(ctx context.Context, req models.TransitionRequest) (*models.TransitionResult, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.users.mu.Lock()
	defer m.users.mu.Unlock()

	claimed := req.ProviderEventID != ""
	if claimed {
		if m.seen[req.ProviderEventID] {
			return &models.TransitionResult{Duplicate: true}, nil
		}
	}

	var user *models.User
	switch {
	case req.UserID != uuid.Nil:
		user = m.users.users[req.UserID]
	case req.Email != "":
		user = m.users.byEmail[req.Email]
	case req.CustomerID != "":
		user = m.users.byCustomer(req.CustomerID)
	}

	ev := &models.SubscriptionEvent{ID: uuid.NewString(), Kind: req.Kind, Outcome: models.OutcomeIgnored}
	if claimed {
		id := req.ProviderEventID
		ev.ProviderEventID = &id
	}

	var transitionErr error
	if user != nil {
		ev.UserID = &user.ID
		from := user.SubscriptionStatus
		ev.FromStatus = &from
		next, err := models.NextStatus(req.Kind, from)
		if err != nil {
			if !claimed {
				return nil, err
			}
			transitionErr = err
		} else {
			user.SubscriptionStatus = next
			if req.SetCustomerID != "" {
				cid := req.SetCustomerID
				user.StripeCustomerID = &cid
			}
			ev.ToStatus = &next
			ev.Outcome = models.OutcomeApplied
		}
	} else if !claimed {
		return nil, repository.ErrNotFound
	}

	if claimed {
		m.seen[req.ProviderEventID] = true
	}
	m.events = append(m.events, ev)
	return &models.TransitionResult{Event: ev}, transitionErr
}

func (m *mockEventRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SubscriptionEvent, error) {
	out := make([]*models.SubscriptionEvent, 0)
	for _, ev := range m.events {
		if ev.UserID != nil && *ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type mockGateway struct {
	checkoutFunc func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	portalFunc   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

func (m *mockGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if m.checkoutFunc != nil {
		return m.checkoutFunc(params)
	}
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/c/pay/cs_test_123"}, nil
}

func (m *mockGateway) CreatePortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if m.portalFunc != nil {
		return m.portalFunc(params)
	}
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session/test"}, nil
}

type mockProvider struct {
	mu           sync.Mutex
	calls        map[string]int
	inFlight     int
	maxInFlight  int
	delay        time.Duration
	currentFunc  func(place models.Place) (*openweather.CurrentResponse, error)
	forecastFunc func(place models.Place) (*openweather.ForecastResponse, error)
	dailyErr     error
	historyErr   error
}

func newMockProvider() *mockProvider {
	return &mockProvider{calls: make(map[string]int)}
}

func (m *mockProvider) enter(name string) func() {
	m.mu.Lock()
	m.calls[name]++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}
}

func (m *mockProvider) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockProvider) Current(ctx context.Context, place models.Place) (*openweather.CurrentResponse, error) {
	defer m.enter("current")()
	if m.currentFunc != nil {
		return m.currentFunc(place)
	}
	resp := &openweather.CurrentResponse{
		Name:    place.City,
		Coord:   openweather.Coord{Lat: 10, Lon: 20},
		Weather: []openweather.Condition{{Description: "clear sky", Icon: "01d"}},
		Main:    openweather.MainBlock{Temp: 21.4, FeelsLike: 20.6, TempMin: 18.2, TempMax: 24.5, Humidity: 40},
		Wind:    openweather.Wind{Speed: 2.5},
	}
	resp.Sys.Country = place.Country
	return resp, nil
}

func (m *mockProvider) Forecast(ctx context.Context, place models.Place) (*openweather.ForecastResponse, error) {
	defer m.enter("forecast")()
	if m.forecastFunc != nil {
		return m.forecastFunc(place)
	}
	resp := &openweather.ForecastResponse{City: openweather.City{Name: place.City, Country: place.Country}}
	start := int64(1717200000)
	for i := int64(0); i < 40; i++ {
		resp.List = append(resp.List, openweather.ForecastSample{
			Dt:      start + i*3*3600,
			Main:    openweather.MainBlock{Temp: 20},
			Weather: []openweather.Condition{{Description: "clear sky", Icon: "01d"}},
		})
	}
	return resp, nil
}

func (m *mockProvider) DailyForecast(ctx context.Context, place models.Place, days int) (*openweather.DailyResponse, error) {
	defer m.enter("daily")()
	if m.dailyErr != nil {
		return nil, m.dailyErr
	}
	resp := &openweather.DailyResponse{List: make([]openweather.DailySample, days)}
	for i := range resp.List {
		resp.List[i].Dt = 1717200000 + int64(i)*86400
	}
	return resp, nil
}

func (m *mockProvider) History(ctx context.Context, coord openweather.Coord, at time.Time) (*openweather.HistoryResponse, error) {
	defer m.enter("history")()
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return &openweather.HistoryResponse{
		Lat:  coord.Lat,
		Lon:  coord.Lon,
		Data: []openweather.HistorySample{{Dt: at.Unix(), Temp: 15}},
	}, nil
}
