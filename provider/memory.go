package provider

import (
	"context"
	"sync"

	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/wheel"
)

// MemoryTenantStore is an in-memory wheel.TenantStore used in tests and
// local development.
type MemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]wheel.TenantConfig
}

func NewMemoryTenantStore() *MemoryTenantStore {
	return &MemoryTenantStore{tenants: make(map[string]wheel.TenantConfig)}
}

func (s *MemoryTenantStore) Put(cfg wheel.TenantConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[cfg.TenantID] = cfg
}

func (s *MemoryTenantStore) GetTenant(ctx context.Context, tenantID string) (*wheel.TenantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.tenants[tenantID]
	if !ok {
		return nil, errors.New(errors.ErrTenantNotFound, "tenant not found")
	}
	out := cfg
	return &out, nil
}

// MemoryUserStore is an in-memory wheel.UserStore. Transactions run under a
// single mutex, so concurrent updates are serialized rather than retried.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]string)}
}

func memoryUserKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}

func (s *MemoryUserStore) GetUser(ctx context.Context, tenantID, userID string) (*wheel.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.users[memoryUserKey(tenantID, userID)]
	if !ok {
		return nil, nil
	}
	return wheel.UserStateFromJSON([]byte(raw))
}

func (s *MemoryUserStore) RunTransaction(ctx context.Context, tenantID, userID string, fn wheel.TxFunc) (*wheel.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryUserKey(tenantID, userID)
	state := &wheel.UserState{UserID: userID}
	found := false
	if raw, ok := s.users[key]; ok {
		loaded, err := wheel.UserStateFromJSON([]byte(raw))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrUserStoreUnavailable, "corrupt user state")
		}
		state = loaded
		found = true
	}

	if err := fn(state, found); err != nil {
		return nil, err
	}

	raw, err := state.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUserStoreUnavailable, "failed to encode user state")
	}
	s.users[key] = string(raw)
	return state, nil
}
