package wheel

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/errors"
)

func TestTenantConfigCache(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeTenantStore(testTenant("t1"))
	cache := NewTenantConfigCache(store, time.Minute, clock, zerolog.Nop())

	t.Run("fresh entry served from cache", func(t *testing.T) {
		if _, err := cache.Get(ctx, "t1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := cache.Get(ctx, "t1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.Calls() != 1 {
			t.Errorf("expected 1 store call, got %d", store.Calls())
		}
	})

	t.Run("ttl expiry refreshes", func(t *testing.T) {
		clock.Advance(61 * time.Second)
		if _, err := cache.Get(ctx, "t1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.Calls() != 2 {
			t.Errorf("expected refresh after ttl, got %d calls", store.Calls())
		}
	})

	t.Run("transient error serves stale", func(t *testing.T) {
		clock.Advance(61 * time.Second)
		store.err = errors.New(errors.ErrRedisError, "connection refused")
		cfg, err := cache.Get(ctx, "t1")
		if err != nil {
			t.Fatalf("expected stale config, got error: %v", err)
		}
		if cfg.TenantID != "t1" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		store.err = nil
	})

	t.Run("unknown tenant propagates", func(t *testing.T) {
		_, err := cache.Get(ctx, "nope")
		if !errors.IsCode(err, errors.ErrTenantNotFound) {
			t.Errorf("expected ErrTenantNotFound, got %v", err)
		}
	})

	t.Run("not found purges cached entry", func(t *testing.T) {
		// Tenant disappears from the store; the stale copy must not be
		// served once the refresh reports not-found.
		clock.Advance(61 * time.Second)
		delete(store.tenants, "t1")
		_, err := cache.Get(ctx, "t1")
		if !errors.IsCode(err, errors.ErrTenantNotFound) {
			t.Fatalf("expected ErrTenantNotFound after removal, got %v", err)
		}
		// And the entry stays gone even with an immediate retry.
		_, err = cache.Get(ctx, "t1")
		if !errors.IsCode(err, errors.ErrTenantNotFound) {
			t.Errorf("expected ErrTenantNotFound on retry, got %v", err)
		}
	})

	t.Run("invalidate forces refresh", func(t *testing.T) {
		store.tenants["t1"] = testTenant("t1")
		if _, err := cache.Get(ctx, "t1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		calls := store.Calls()
		cache.Invalidate("t1")
		if _, err := cache.Get(ctx, "t1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.Calls() != calls+1 {
			t.Errorf("expected refresh after invalidate, got %d calls", store.Calls()-calls)
		}
	})
}
