package wheel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/errors"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// queueRand returns queued draws in order, repeating the last one.
type queueRand struct {
	mu    sync.Mutex
	draws []float64
}

func (r *queueRand) Draw() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.draws) == 0 {
		return 0
	}
	d := r.draws[0]
	if len(r.draws) > 1 {
		r.draws = r.draws[1:]
	}
	return d
}

// memUserStore is a serialized in-memory UserStore for engine tests. It
// round-trips state through JSON so tests catch marshalling mistakes.
type memUserStore struct {
	mu    sync.Mutex
	users map[string][]byte

	// failNext makes the next transaction fail with the given error.
	failNext error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string][]byte)}
}

func (s *memUserStore) key(tenantID, userID string) string {
	return tenantID + "/" + userID
}

func (s *memUserStore) GetUser(ctx context.Context, tenantID, userID string) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.users[s.key(tenantID, userID)]
	if !ok {
		return nil, nil
	}
	return UserStateFromJSON(raw)
}

func (s *memUserStore) RunTransaction(ctx context.Context, tenantID, userID string, fn TxFunc) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}

	key := s.key(tenantID, userID)
	state := &UserState{UserID: userID}
	found := false
	if raw, ok := s.users[key]; ok {
		loaded, err := UserStateFromJSON(raw)
		if err != nil {
			return nil, err
		}
		state = loaded
		found = true
	}

	if err := fn(state, found); err != nil {
		return nil, err
	}

	raw, err := state.ToJSON()
	if err != nil {
		return nil, err
	}
	s.users[key] = raw
	return state, nil
}

// fakeTenantStore serves configs from a map and counts lookups.
type fakeTenantStore struct {
	mu      sync.Mutex
	tenants map[string]*TenantConfig
	err     error
	calls   int
}

func newFakeTenantStore(cfgs ...*TenantConfig) *fakeTenantStore {
	s := &fakeTenantStore{tenants: make(map[string]*TenantConfig)}
	for _, cfg := range cfgs {
		s.tenants[cfg.TenantID] = cfg
	}
	return s
}

func (s *fakeTenantStore) GetTenant(ctx context.Context, tenantID string) (*TenantConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.tenants[tenantID]
	if !ok {
		return nil, errors.New(errors.ErrTenantNotFound, "tenant not found")
	}
	return cfg, nil
}

func (s *fakeTenantStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingObserver captures SpinCommitted calls.
type recordingObserver struct {
	mu      sync.Mutex
	records []SpinRecord
}

func (o *recordingObserver) SpinCommitted(ctx context.Context, tenant *TenantConfig, userID string, record SpinRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
}

func (o *recordingObserver) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.records)
}

// failNotifier errors on every send and signals each attempt.
type failNotifier struct {
	sent chan struct{}
}

func newFailNotifier() *failNotifier {
	return &failNotifier{sent: make(chan struct{}, 1)}
}

func (n *failNotifier) Send(ctx context.Context, tenant *TenantConfig, userID, message string) error {
	select {
	case n.sent <- struct{}{}:
	default:
	}
	return errors.New(errors.ErrServiceUnavailable, "telegram unreachable")
}

// stubSubs returns a fixed answer or error.
type stubSubs struct {
	subscribed bool
	err        error
}

func (s *stubSubs) IsSubscribed(ctx context.Context, tenant *TenantConfig, userID string) (bool, error) {
	return s.subscribed, s.err
}

func testTenant(id string) *TenantConfig {
	return &TenantConfig{
		TenantID: id,
		Title:    "Test Wheel",
		Prizes: []Prize{
			{ID: "p1", Label: "10 points", Weight: 50, RewardKind: RewardPoints, Available: true},
			{ID: "p2", Label: "Grand prize", Weight: 10, RewardKind: RewardGrandPrize, Available: true},
			{ID: "p3", Label: "Nothing", Weight: 40, RewardKind: RewardNone, Available: true},
		},
		Limits: TenantLimits{MaxSpinsPerDay: 3, CooldownSeconds: 0, PrizeExpiryDays: 7},
	}
}

func testEngine(store *fakeTenantStore, users UserStore, clock Clock, rnd RandSource, opts ...func(*EngineOptions)) *Engine {
	cache := NewTenantConfigCache(store, time.Minute, clock, zerolog.Nop())
	eo := EngineOptions{
		UserStore:   users,
		TenantCache: cache,
		Clock:       clock,
		Rand:        rnd,
		Logger:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(&eo)
	}
	return NewEngine(eo)
}
