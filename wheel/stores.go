package wheel

import "context"

// TenantStore serves tenant configuration documents.
// Implementations return an AppError with ErrTenantNotFound for unknown ids.
type TenantStore interface {
	GetTenant(ctx context.Context, tenantID string) (*TenantConfig, error)
}

// TxFunc mutates a user state inside a store transaction. found is false
// when no document exists yet; the store then passes a blank state with
// only UserID set (create-if-absent). Returning an error aborts the
// transaction without persisting anything.
type TxFunc func(state *UserState, found bool) error

// UserStore is the one unit of concurrency control in the engine: a single
// user document read, mutated, and written atomically with conflict retry.
type UserStore interface {
	// RunTransaction executes fn inside an atomic read-modify-write of the
	// (tenantID, userID) document and returns the committed state.
	// Conflicts are retried a bounded number of times; exhaustion and
	// timeouts surface as an AppError with ErrUserStoreUnavailable. A
	// timed-out transaction has unknown commit status and must not be
	// reported as a plain failure.
	RunTransaction(ctx context.Context, tenantID, userID string, fn TxFunc) (*UserState, error)

	// GetUser returns the current state, or (nil, nil) when the user has
	// no document yet. Read-only; used by status queries.
	GetUser(ctx context.Context, tenantID, userID string) (*UserState, error)
}

// Notifier delivers outbound chat messages. Best effort: failures are
// logged by the caller, never propagated to the spin flow.
type Notifier interface {
	Send(ctx context.Context, tenant *TenantConfig, userID, message string) error
}

// SubscriptionChecker verifies chat-platform membership for tenants with
// SubscriptionRequired set. A transient check error fails open (the spin
// proceeds); a definite "not subscribed" blocks it, as does a gate
// misconfiguration reported as ErrConfigError.
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, tenant *TenantConfig, userID string) (bool, error)
}

// SpinObserver receives committed spins for post-commit side effects
// (events, feeds, metrics). Observers must not block the spin caller.
type SpinObserver interface {
	SpinCommitted(ctx context.Context, tenant *TenantConfig, userID string, record SpinRecord)
}
