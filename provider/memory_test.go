package provider

import (
	"context"
	"testing"

	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/wheel"
)

func TestMemoryTenantStore(t *testing.T) {
	store := NewMemoryTenantStore()
	store.Put(wheel.TenantConfig{TenantID: "t1", Title: "Wheel"})

	cfg, err := store.GetTenant(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Title != "Wheel" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	_, err = store.GetTenant(context.Background(), "missing")
	if !errors.IsCode(err, errors.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestMemoryUserStoreTransaction(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	t.Run("missing user reads as nil", func(t *testing.T) {
		state, err := store.GetUser(ctx, "t1", "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != nil {
			t.Errorf("expected nil state, got %+v", state)
		}
	})

	t.Run("create if absent", func(t *testing.T) {
		state, err := store.RunTransaction(ctx, "t1", "u1", func(u *wheel.UserState, found bool) error {
			if found {
				t.Error("expected found=false on first transaction")
			}
			if u.UserID != "u1" {
				t.Errorf("expected blank state for u1, got %q", u.UserID)
			}
			u.TotalSpins = 1
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state.TotalSpins != 1 {
			t.Errorf("expected committed state, got %+v", state)
		}
	})

	t.Run("subsequent transaction sees committed state", func(t *testing.T) {
		_, err := store.RunTransaction(ctx, "t1", "u1", func(u *wheel.UserState, found bool) error {
			if !found {
				t.Error("expected found=true")
			}
			if u.TotalSpins != 1 {
				t.Errorf("expected 1 spin, got %d", u.TotalSpins)
			}
			u.TotalSpins++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("error aborts without persisting", func(t *testing.T) {
		boom := errors.New(errors.ErrInvalidRequest, "boom")
		_, err := store.RunTransaction(ctx, "t1", "u1", func(u *wheel.UserState, found bool) error {
			u.TotalSpins = 99
			return boom
		})
		if err != boom {
			t.Fatalf("expected fn error to pass through, got %v", err)
		}
		state, _ := store.GetUser(ctx, "t1", "u1")
		if state.TotalSpins != 2 {
			t.Errorf("aborted transaction leaked a write: %d", state.TotalSpins)
		}
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		state, err := store.GetUser(ctx, "t2", "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != nil {
			t.Error("user state leaked across tenants")
		}
	})
}
