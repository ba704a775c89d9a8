package tests

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"orbix/internal/domain"
	"orbix/internal/gateway"
	"orbix/internal/maps"
	"orbix/internal/redis"
	"orbix/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory RideRepository. The conditional
// methods hold the lock across check-and-set, mirroring the single
// guarded UPDATE of the real implementation.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	ClaimCallCount  int32

	// Error injection
	CreateError error
	ClaimError  error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

var _ repository.RideRepository = (*MockRideRepository)(nil)

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// GetRide returns a snapshot of the stored ride, or nil.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ride, ok := m.rides[id]; ok {
		copied := *ride
		return &copied
	}
	return nil
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *ride
	m.rides[ride.ID] = &copied
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ride
	return &copied, nil
}

func (m *MockRideRepository) ClaimIfPending(ctx context.Context, rideID, driverID string) (bool, error) {
	atomic.AddInt32(&m.ClaimCallCount, 1)
	if m.ClaimError != nil {
		return false, m.ClaimError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusPending || ride.DriverID != "" {
		return false, nil
	}
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAccepted
	return true, nil
}

func (m *MockRideRepository) MarkStarted(ctx context.Context, rideID string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusAccepted {
		return false, nil
	}
	ride.Status = domain.RideStatusOngoing
	ride.StartedAt = startedAt
	return true, nil
}

func (m *MockRideRepository) MarkCompleted(ctx context.Context, rideID string, c repository.RideCompletion) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusOngoing {
		return false, nil
	}
	ride.Status = domain.RideStatusCompleted
	ride.EndedAt = c.EndedAt
	ride.RideDurationMin = c.DurationMin
	ride.WaitingCharges = c.WaitingCharges
	ride.TotalFare = c.TotalFare
	return true, nil
}

func (m *MockRideRepository) MarkCancelled(ctx context.Context, rideID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, nil
	}
	switch ride.Status {
	case domain.RideStatusPending, domain.RideStatusAccepted, domain.RideStatusOngoing:
	default:
		return false, nil
	}
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = at
	ride.CancelReason = reason
	return true, nil
}

func (m *MockRideRepository) CompletePaymentIfDue(ctx context.Context, rideID string, method domain.PaymentMethod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusCompleted || ride.PaymentStatus == domain.PaymentStatusCompleted {
		return false, nil
	}
	ride.PaymentStatus = domain.PaymentStatusCompleted
	ride.PaymentMethod = method
	return true, nil
}

func (m *MockRideRepository) MarkPaymentFailed(ctx context.Context, rideID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusCompleted || ride.PaymentStatus != domain.PaymentStatusPending {
		return false, nil
	}
	ride.PaymentStatus = domain.PaymentStatusFailed
	return true, nil
}

func (m *MockRideRepository) UnlinkWallet(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.WalletLinked = false
	return nil
}

func (m *MockRideRepository) RateIfUnrated(ctx context.Context, rideID string, rating int, review string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusCompleted || ride.Rating != 0 {
		return false, nil
	}
	ride.Rating = rating
	ride.Review = review
	return true, nil
}

func (m *MockRideRepository) ListPendingUnassigned(ctx context.Context, class domain.VehicleClass) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Ride
	for _, ride := range m.rides {
		if ride.Status == domain.RideStatusPending && ride.DriverID == "" && ride.VehicleClass == class {
			copied := *ride
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockRideRepository) ListByRider(ctx context.Context, riderID string, f repository.RideFilter) ([]*domain.Ride, error) {
	return m.list(func(r *domain.Ride) bool { return r.RiderID == riderID }, f), nil
}

func (m *MockRideRepository) ListByDriver(ctx context.Context, driverID string, f repository.RideFilter) ([]*domain.Ride, error) {
	return m.list(func(r *domain.Ride) bool { return r.DriverID == driverID }, f), nil
}

func (m *MockRideRepository) list(match func(*domain.Ride) bool, f repository.RideFilter) []*domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Ride
	for _, ride := range m.rides {
		if !match(ride) {
			continue
		}
		if f.Status != "" && ride.Status != f.Status {
			continue
		}
		if !f.Since.IsZero() && ride.CreatedAt.Before(f.Since) {
			continue
		}
		copied := *ride
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (m *MockRideRepository) AverageRatingForDriver(ctx context.Context, driverID string) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum, count := 0, 0
	for _, ride := range m.rides {
		if ride.DriverID == driverID && ride.Rating > 0 {
			sum += ride.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	ApplyEarningsCallCount int32
	ResetDailyCallCount    int32
	ResetWeeklyCallCount   int32

	// Error injection
	ApplyEarningsError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

var _ repository.DriverRepository = (*MockDriverRepository)(nil)

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

// GetDriver returns a snapshot of the stored driver, or nil.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if driver, ok := m.drivers[id]; ok {
		copied := *driver
		return &copied
	}
	return nil
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *driver
	m.drivers[driver.ID] = &copied
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *driver
	return &copied, nil
}

func (m *MockDriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, driver := range m.drivers {
		if driver.Phone == phone {
			copied := *driver
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Driver, 0, len(ids))
	for _, id := range ids {
		if driver, ok := m.drivers[id]; ok {
			copied := *driver
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockDriverRepository) ListActiveByClass(ctx context.Context, class domain.VehicleClass) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Driver
	for _, driver := range m.drivers {
		if driver.Status == domain.DriverStatusActive && driver.VehicleClass == class {
			copied := *driver
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

func (m *MockDriverRepository) ApplyEarnings(ctx context.Context, id string, u repository.EarningsUpdate) error {
	atomic.AddInt32(&m.ApplyEarningsCallCount, 1)
	if m.ApplyEarningsError != nil {
		return m.ApplyEarningsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	oldTotal := driver.TotalTrips
	driver.WalletBalance += u.Earnings
	driver.TodayEarnings += u.Earnings
	driver.TripsToday++
	driver.WeeklyEarnings += u.Earnings
	driver.WeeklyTrips++
	driver.TotalTrips++
	driver.AvgRideTimeMin = int(math.Ceil(
		(float64(driver.AvgRideTimeMin)*float64(oldTotal) + float64(u.DurationMin)) / float64(oldTotal+1)))
	driver.LastRideDay = u.Day
	return nil
}

func (m *MockDriverRepository) ResetDailyCounters(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ResetDailyCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.TodayEarnings = 0
	driver.TripsToday = 0
	return nil
}

func (m *MockDriverRepository) ResetWeeklyCounters(ctx context.Context, id string, weekStart time.Time) error {
	atomic.AddInt32(&m.ResetWeeklyCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.WeeklyEarnings = 0
	driver.WeeklyTrips = 0
	driver.WeekStartAt = weekStart
	return nil
}

func (m *MockDriverRepository) UpdateRating(ctx context.Context, id string, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Rating = rating
	return nil
}

// ──────────────────────────────────────────────
// MOCK RIDER REPOSITORY
// ──────────────────────────────────────────────

// MockRiderRepository is an in-memory RiderRepository.
type MockRiderRepository struct {
	mu     sync.RWMutex
	riders map[string]*domain.Rider

	// Counters for verification
	IncrementRidesCallCount int32
	AddSpendCallCount       int32
}

// NewMockRiderRepository creates a new mock rider repository.
func NewMockRiderRepository() *MockRiderRepository {
	return &MockRiderRepository{
		riders: make(map[string]*domain.Rider),
	}
}

var _ repository.RiderRepository = (*MockRiderRepository)(nil)

// AddRider adds a rider to the mock repository.
func (m *MockRiderRepository) AddRider(rider *domain.Rider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
}

// GetRider returns a snapshot of the stored rider, or nil.
func (m *MockRiderRepository) GetRider(id string) *domain.Rider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rider, ok := m.riders[id]; ok {
		copied := *rider
		return &copied
	}
	return nil
}

func (m *MockRiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rider
	m.riders[rider.ID] = &copied
	return nil
}

func (m *MockRiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rider, ok := m.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *rider
	return &copied, nil
}

func (m *MockRiderRepository) GetByPhone(ctx context.Context, phone string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rider := range m.riders {
		if rider.Phone == phone {
			copied := *rider
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRiderRepository) IncrementRides(ctx context.Context, id string) error {
	atomic.AddInt32(&m.IncrementRidesCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[id]
	if !ok {
		return repository.ErrNotFound
	}
	rider.TotalRides++
	return nil
}

func (m *MockRiderRepository) AddSpend(ctx context.Context, id string, amount float64) error {
	atomic.AddInt32(&m.AddSpendCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[id]
	if !ok {
		return repository.ErrNotFound
	}
	rider.TotalSpent += amount
	return nil
}

func (m *MockRiderRepository) SetWalletLinked(ctx context.Context, id string, linked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[id]
	if !ok {
		return repository.ErrNotFound
	}
	rider.WalletLinked = linked
	return nil
}

// debitIfCovered subtracts amount from the rider's balance only when the
// balance covers it, the same floor guard the SQL update enforces.
func (m *MockRiderRepository) debitIfCovered(id string, amount float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[id]
	if !ok || rider.WalletBalance < amount {
		return false
	}
	rider.WalletBalance -= amount
	return true
}

func (m *MockRiderRepository) credit(id string, amount float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[id]
	if !ok {
		return false
	}
	rider.WalletBalance += amount
	return true
}

// ──────────────────────────────────────────────
// MOCK WALLET REPOSITORY
// ──────────────────────────────────────────────

// MockWalletRepository moves balances on the rider repository and keeps
// an append-only ledger, mirroring the transactional pairing of the
// real implementation.
type MockWalletRepository struct {
	mu      sync.Mutex
	riders  *MockRiderRepository
	entries []*domain.Transaction

	// Counters for verification
	DebitCallCount  int32
	CreditCallCount int32

	// Error injection
	DebitError error
}

// NewMockWalletRepository creates a wallet repository over the given riders.
func NewMockWalletRepository(riders *MockRiderRepository) *MockWalletRepository {
	return &MockWalletRepository{riders: riders}
}

var _ repository.WalletRepository = (*MockWalletRepository)(nil)

func (m *MockWalletRepository) DebitRider(ctx context.Context, txn *domain.Transaction) (bool, error) {
	atomic.AddInt32(&m.DebitCallCount, 1)
	if m.DebitError != nil {
		return false, m.DebitError
	}
	if !m.riders.debitIfCovered(txn.OwnerID, txn.Amount) {
		return false, nil
	}
	m.append(txn)
	return true, nil
}

func (m *MockWalletRepository) CreditRider(ctx context.Context, txn *domain.Transaction) error {
	atomic.AddInt32(&m.CreditCallCount, 1)
	if !m.riders.credit(txn.OwnerID, txn.Amount) {
		return repository.ErrNotFound
	}
	m.append(txn)
	return nil
}

func (m *MockWalletRepository) AppendEntry(ctx context.Context, txn *domain.Transaction) error {
	m.append(txn)
	return nil
}

func (m *MockWalletRepository) ListByOwner(ctx context.Context, ownerID string, role domain.OwnerRole, limit int) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for i := len(m.entries) - 1; i >= 0; i-- {
		txn := m.entries[i]
		if txn.OwnerID != ownerID || txn.OwnerRole != role {
			continue
		}
		copied := *txn
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockWalletRepository) append(txn *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *txn
	m.entries = append(m.entries, &copied)
}

// CountEntries reports ledger entries matching owner and type.
func (m *MockWalletRepository) CountEntries(ownerID string, typ domain.TransactionType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, txn := range m.entries {
		if txn.OwnerID == ownerID && txn.Type == typ {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory geo index. FindNearbyDrivers
// returns the seeded locations in order, ignoring the query point.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.DriverLocation

	UpdateCallCount int32
	RemoveCallCount int32

	FindError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{}
}

var _ redis.LocationStoreInterface = (*MockLocationStore)(nil)

// AddDriverLocation seeds a driver location.
func (m *MockLocationStore) AddDriverLocation(loc redis.DriverLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng})
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]redis.DriverLocation, len(m.locations))
	copy(out, m.locations)
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			break
		}
	}
	return nil
}

// MockLockStore is an in-memory dispatch lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	AcquireCallCount int32
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]time.Time)}
}

var _ redis.LockStoreInterface = (*MockLockStore)(nil)

func (m *MockLockStore) AcquireDispatchLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, ok := m.locks[rideID]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[rideID] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseDispatchLock(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, rideID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK ROUTER
// ──────────────────────────────────────────────

// MockRouter is a configurable maps.Router.
type MockRouter struct {
	GeoPoint maps.Point
	Estimate maps.RouteEstimate

	GeocodeError error
	RouteError   error

	GeocodeCallCount int32
	RouteCallCount   int32
}

var _ maps.Router = (*MockRouter)(nil)

func (m *MockRouter) Geocode(ctx context.Context, address string) (maps.Point, error) {
	atomic.AddInt32(&m.GeocodeCallCount, 1)
	if m.GeocodeError != nil {
		return maps.Point{}, m.GeocodeError
	}
	return m.GeoPoint, nil
}

func (m *MockRouter) Route(ctx context.Context, origin, destination string) (maps.RouteEstimate, error) {
	atomic.AddInt32(&m.RouteCallCount, 1)
	if m.RouteError != nil {
		return maps.RouteEstimate{}, m.RouteError
	}
	return m.Estimate, nil
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent is one event captured by the mock publisher.
type PublishedEvent struct {
	Handle string
	Event  string
	Data   any
}

// MockPublisher records everything pushed at it.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(handle, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Handle: handle, Event: event, Data: data})
}

// CountByEvent reports how many events of the given name were published.
func (m *MockPublisher) CountByEvent(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.Event == event {
			count++
		}
	}
	return count
}

// EventsFor returns the events published to a handle.
func (m *MockPublisher) EventsFor(handle string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedEvent
	for _, e := range m.events {
		if e.Handle == handle {
			out = append(out, e)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK PAYMENT PROVIDER
// ──────────────────────────────────────────────

// MockProvider is an in-memory payment gateway.
type MockProvider struct {
	mu      sync.Mutex
	charges []*gateway.ChargeRequest

	ChargeCallCount int32
	ChargeError     error
}

// NewMockProvider creates a new mock payment provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

var _ gateway.Provider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	n := atomic.AddInt32(&m.ChargeCallCount, 1)
	if m.ChargeError != nil {
		return nil, m.ChargeError
	}
	m.mu.Lock()
	m.charges = append(m.charges, req)
	m.mu.Unlock()
	return &gateway.ChargeResult{
		TransactionID: fmt.Sprintf("mock-txn-%d", n),
		Status:        "succeeded",
		Amount:        req.Amount,
		Currency:      req.Currency,
		CreatedAt:     time.Now().Unix(),
	}, nil
}

// LastCharge returns the most recent charge request, or nil.
func (m *MockProvider) LastCharge() *gateway.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.charges) == 0 {
		return nil
	}
	return m.charges[len(m.charges)-1]
}
