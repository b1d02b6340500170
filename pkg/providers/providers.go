package providers

import (
	"time"

	"github.com/kristianakila/restbek2/wheel"
)

// The provider contracts are declared next to their consumer in the wheel
// package; these aliases are the shared reference point for implementations
// under provider/ and for server wiring.

// TenantStore serves tenant configuration documents.
type TenantStore = wheel.TenantStore

// UserStore is the atomic read-modify-write user document store.
type UserStore = wheel.UserStore

// Notifier delivers outbound chat messages, best effort.
type Notifier = wheel.Notifier

// SubscriptionChecker verifies chat-platform membership.
type SubscriptionChecker = wheel.SubscriptionChecker

// SpinObserver receives committed spins for post-commit side effects.
type SpinObserver = wheel.SpinObserver

// TxOptions tunes the optimistic-concurrency loop of a UserStore
// implementation. Conflict retries defend against two concurrent spins on
// the same document; the counts stay small because the retried closure
// re-runs the eligibility check anyway.
type TxOptions struct {
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

// DefaultTxOptions returns the retry/backoff defaults used by the Redis
// user store.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		MaxRetries: 5,
		Backoff:    10 * time.Millisecond,
		Timeout:    3 * time.Second,
	}
}
