package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Counters for verification
	SetAvailabilityCallCount   int32
	AddOutstandingFeeCallCount int32

	// Error injection
	CreateError error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// GetUser returns the stored user without copy, for assertions.
func (m *MockUserRepository) GetUser(id string) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Phone == phone {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) SetOnline(ctx context.Context, id string, online bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.IsOnline = online
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	atomic.AddInt32(&m.SetAvailabilityCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsAvailable = available
	return nil
}

func (m *MockUserRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Lat = lat
	user.Lng = lng
	return nil
}

func (m *MockUserRepository) AddOutstandingFee(ctx context.Context, id string, amount int64) error {
	atomic.AddInt32(&m.AddOutstandingFeeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OutstandingFee += amount
	return nil
}

func (m *MockUserRepository) ClearOutstandingFee(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OutstandingFee = 0
	return nil
}

func (m *MockUserRepository) ListAvailableDrivers(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var drivers []*domain.User
	for _, u := range m.users {
		if u.Role == domain.RoleDriver && u.IsOnline && u.IsAvailable {
			copy := *u
			drivers = append(drivers, &copy)
		}
	}
	return drivers, nil
}

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository. Its
// UpdateIf checks and writes under one lock, matching the atomicity of
// the real conditional update.
type MockTripRepository struct {
	mu    sync.Mutex
	trips map[string]*domain.Trip

	// Counters for verification
	UpdateIfCallCount int32
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{trips: make(map[string]*domain.Trip)}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

// GetTrip returns the stored trip without copy, for assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trips[id]
}

// CountTrips returns the number of stored trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trips)
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) UpdateIf(ctx context.Context, id string, expectedStatus domain.TripStatus, update repository.TripUpdate) (*domain.Trip, error) {
	atomic.AddInt32(&m.UpdateIfCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[id]
	if !ok || trip.Status != expectedStatus {
		return nil, repository.ErrConflict
	}

	if update.Status != nil {
		trip.Status = *update.Status
	}
	if update.DriverID != nil {
		trip.DriverID = *update.DriverID
	}
	if update.CarID != nil {
		trip.CarID = *update.CarID
	}
	if update.DriverLat != nil {
		trip.DriverLat = *update.DriverLat
	}
	if update.DriverLng != nil {
		trip.DriverLng = *update.DriverLng
	}
	if update.AcceptedAt != nil {
		trip.AcceptedAt = *update.AcceptedAt
	}
	if update.ArrivedAt != nil {
		trip.ArrivedAt = *update.ArrivedAt
	}
	if update.StartedAt != nil {
		trip.StartedAt = *update.StartedAt
	}
	if update.CompletedAt != nil {
		trip.CompletedAt = *update.CompletedAt
	}
	if update.ActualDurationMin != nil {
		trip.ActualDurationMin = *update.ActualDurationMin
	}
	if update.ActualDistanceM != nil {
		trip.ActualDistanceM = *update.ActualDistanceM
	}
	if update.FinalFare != nil {
		trip.FinalFare = *update.FinalFare
	}
	if update.ExtraCharge != nil {
		trip.ExtraCharge = *update.ExtraCharge
	}
	if update.CancellationReason != nil {
		trip.CancellationReason = update.CancellationReason
	}

	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) UpdateDriverLocation(ctx context.Context, id string, lat, lng float64) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	trip.DriverLat = lat
	trip.DriverLng = lng
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) AdjustTollFee(ctx context.Context, id string, delta int64) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	trip.TollFee += delta
	if trip.TollFee < 0 {
		trip.TollFee = 0
	}
	copy := *trip
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK FARE REPOSITORY
// ──────────────────────────────────────────────

// MockFareRepository is a mock implementation of FareRepository.
type MockFareRepository struct {
	mu         sync.RWMutex
	fareConfig *domain.FareConfig
	peakHour   *domain.PeakHour
	coupons    map[string]*domain.Coupon
}

// NewMockFareRepository creates a new mock fare repository.
func NewMockFareRepository() *MockFareRepository {
	return &MockFareRepository{coupons: make(map[string]*domain.Coupon)}
}

// SetFareConfig sets the fare configuration.
func (m *MockFareRepository) SetFareConfig(cfg *domain.FareConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fareConfig = cfg
}

// SetPeakHour sets the peak-hour configuration.
func (m *MockFareRepository) SetPeakHour(peak *domain.PeakHour) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peakHour = peak
}

// AddCoupon adds a coupon.
func (m *MockFareRepository) AddCoupon(coupon *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[coupon.Code] = coupon
}

func (m *MockFareRepository) GetFareConfig(ctx context.Context) (*domain.FareConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fareConfig == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.fareConfig
	return &copy, nil
}

func (m *MockFareRepository) GetPeakHour(ctx context.Context) (*domain.PeakHour, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.peakHour == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.peakHour
	return &copy, nil
}

func (m *MockFareRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coupon, ok := m.coupons[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *coupon
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK SESSION AND MESSAGE REPOSITORIES
// ──────────────────────────────────────────────

// MockSessionRepository is a mock implementation of SessionRepository.
type MockSessionRepository struct {
	mu       sync.Mutex
	sessions []*domain.OnlineSession
}

// NewMockSessionRepository creates a new mock session repository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Sessions returns the stored sessions, for assertions.
func (m *MockSessionRepository) Sessions() []*domain.OnlineSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.OnlineSession(nil), m.sessions...)
}

func (m *MockSessionRepository) Open(ctx context.Context, session *domain.OnlineSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *MockSessionRepository) CloseLatestOpen(ctx context.Context, driverID string, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sessions) - 1; i >= 0; i-- {
		s := m.sessions[i]
		if s.DriverID == driverID && s.EndedAt.IsZero() {
			s.EndedAt = end
			s.Duration = end.Sub(s.StartedAt)
			return nil
		}
	}
	// No open session is not an error.
	return nil
}

func (m *MockSessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.OnlineSession
	var removed int64
	for _, s := range m.sessions {
		if s.EndedAt.IsZero() && s.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return removed, nil
}

// MockMessageRepository is a mock implementation of MessageRepository.
type MockMessageRepository struct {
	mu       sync.Mutex
	messages []*domain.Message

	CreateError error
}

// NewMockMessageRepository creates a new mock message repository.
func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

// Messages returns the stored messages, for assertions.
func (m *MockMessageRepository) Messages() []*domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Message(nil), m.messages...)
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// ──────────────────────────────────────────────
// MOCK EVENT SENDER AND NOTIFIER
// ──────────────────────────────────────────────

// SentEvent records one event pushed to a user.
type SentEvent struct {
	Event   string
	Payload service.Result
}

// MockEventSender records events instead of delivering them.
type MockEventSender struct {
	mu     sync.Mutex
	events map[string][]SentEvent
}

// NewMockEventSender creates a new mock event sender.
func NewMockEventSender() *MockEventSender {
	return &MockEventSender{events: make(map[string][]SentEvent)}
}

func (m *MockEventSender) SendToUser(userID, event string, payload service.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[userID] = append(m.events[userID], SentEvent{Event: event, Payload: payload})
}

// EventsFor returns every event sent to the user.
func (m *MockEventSender) EventsFor(userID string) []SentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEvent(nil), m.events[userID]...)
}

// CountFor returns how many times the user received the event.
func (m *MockEventSender) CountFor(userID, event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events[userID] {
		if e.Event == event {
			count++
		}
	}
	return count
}

// SentNotification records one notification.
type SentNotification struct {
	Title       string
	Message     string
	RecipientID string
}

// MockNotifier records notifications instead of delivering them.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []SentNotification
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(title, message, recipientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, SentNotification{
		Title:       title,
		Message:     message,
		RecipientID: recipientID,
	})
}

// NotificationsFor returns every notification sent to the recipient.
func (m *MockNotifier) NotificationsFor(recipientID string) []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []SentNotification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			result = append(result, n)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[driverID] {
		return false, nil
	}
	m.locks[driverID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, driverID)
	return nil
}

// MockLocationStore is an in-memory implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.Mutex
	locations map[string]redis.DriverLocation
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]redis.DriverLocation)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []redis.DriverLocation
	for _, loc := range m.locations {
		result = append(result, loc)
	}
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation reports whether the driver is in the geo index.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locations[driverID]
	return ok
}

// Interface checks.
var (
	_ repository.UserRepository    = (*MockUserRepository)(nil)
	_ repository.TripRepository    = (*MockTripRepository)(nil)
	_ repository.FareRepository    = (*MockFareRepository)(nil)
	_ repository.SessionRepository = (*MockSessionRepository)(nil)
	_ repository.MessageRepository = (*MockMessageRepository)(nil)
	_ service.EventSender          = (*MockEventSender)(nil)
	_ service.Notifier             = (*MockNotifier)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
)
