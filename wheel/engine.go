package wheel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/kristianakila/restbek2/errors"
)

// Engine is the engagement state machine and prize-allocation core. It is
// synchronous and stateless apart from the tenant cache; all mutable state
// lives in the user store, one document per (tenant, user).
type Engine struct {
	users    UserStore
	tenants  *TenantConfigCache
	clock    Clock
	rnd      RandSource
	notifier Notifier
	subs     SubscriptionChecker
	observer SpinObserver
	logger   zerolog.Logger

	notifyTimeout time.Duration
}

// EngineOptions configures an Engine. UserStore and TenantCache are
// required; the rest default to system implementations or no-ops.
type EngineOptions struct {
	UserStore           UserStore
	TenantCache         *TenantConfigCache
	Clock               Clock
	Rand                RandSource
	Notifier            Notifier
	SubscriptionChecker SubscriptionChecker
	Observer            SpinObserver
	Logger              zerolog.Logger
	NotifyTimeout       time.Duration
}

// NewEngine creates a new engine.
func NewEngine(opts EngineOptions) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = NewLockedRand(time.Now().UnixNano())
	}
	notifyTimeout := opts.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &Engine{
		users:         opts.UserStore,
		tenants:       opts.TenantCache,
		clock:         clock,
		rnd:           rnd,
		notifier:      opts.Notifier,
		subs:          opts.SubscriptionChecker,
		observer:      opts.Observer,
		logger:        opts.Logger.With().Str("component", "wheel_engine").Logger(),
		notifyTimeout: notifyTimeout,
	}
}

// Spin executes one spin for the user: eligibility, weighted prize
// selection, and the state append all happen inside a single atomic
// transaction on the user's document, so two concurrent requests cannot
// both pass the daily-limit check. referrerID is optional.
func (e *Engine) Spin(ctx context.Context, tenantID, userID, referrerID string) (*SpinRecord, error) {
	cfg, err := e.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := e.checkSubscription(ctx, cfg, userID); err != nil {
		return nil, err
	}

	var record SpinRecord
	state, err := e.users.RunTransaction(ctx, tenantID, userID, func(u *UserState, found bool) error {
		now := e.clock.Now()
		if !found {
			u.CreatedAt = now
		}

		// Eligibility must be evaluated against the state read inside
		// this transaction; a retry after a conflict re-runs the check.
		elig := EvaluateEligibility(u, cfg.Limits, now)
		switch elig.Status {
		case StatusDailyLimit:
			return errors.DailyLimitReached(elig.SpinsToday)
		case StatusCoolingDown:
			return errors.CoolingDown(elig.RetryAfterSeconds)
		}

		prize, err := SelectPrize(cfg.AvailablePrizes(), e.rnd)
		if err != nil {
			return err
		}

		record = SpinRecord{
			SpinID:      uuid.New().String(),
			CreatedAt:   now,
			PrizeID:     prize.ID,
			PrizeLabel:  prize.Label,
			RewardKind:  prize.RewardKind,
			RewardValue: prize.RewardValue,
			LeadState:   LeadPending,
		}
		u.Spins = append(u.Spins, record)
		u.TotalSpins++
		u.LastSpinAt = &record.CreatedAt
		if prize.RewardKind != RewardNone {
			u.TotalPrizes++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Referral attribution touches the referrer's document, a separate
	// atomic update. Failures here never unwind the committed spin.
	if cfg.ReferralEnabled && referrerID != "" && referrerID != userID && !state.ReferrerProcessed {
		if err := e.AttributeReferral(ctx, tenantID, referrerID, userID); err != nil {
			e.logger.Warn().Err(err).
				Str("tenant_id", tenantID).
				Str("referrer_id", referrerID).
				Str("user_id", userID).
				Msg("Referral attribution failed")
		}
	}

	e.notifySpin(cfg, userID, record)

	if e.observer != nil {
		e.observer.SpinCommitted(ctx, cfg, userID, record)
	}

	return &record, nil
}

// Status is the read-only view of a user's standing with a tenant.
type Status struct {
	Eligibility    Eligibility  `json:"eligibility"`
	TotalSpins     int          `json:"totalSpins"`
	TotalPrizes    int          `json:"totalPrizes"`
	ReferralsCount int          `json:"referralsCount"`
	RecentSpins    []StatusSpin `json:"recentSpins,omitempty"`
}

// StatusSpin is a spin record annotated with its read-time expiry.
type StatusSpin struct {
	SpinRecord
	Expired bool `json:"expired"`
}

const statusSpinLimit = 20

// GetStatus evaluates eligibility and totals for a user without mutating
// anything. Users with no document yet get a fully-eligible zero status.
func (e *Engine) GetStatus(ctx context.Context, tenantID, userID string) (*Status, error) {
	cfg, err := e.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	state, err := e.users.GetUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = NewUserState(userID, now)
	}

	recent := state.Spins
	if len(recent) > statusSpinLimit {
		recent = recent[len(recent)-statusSpinLimit:]
	}

	return &Status{
		Eligibility:    EvaluateEligibility(state, cfg.Limits, now),
		TotalSpins:     state.TotalSpins,
		TotalPrizes:    state.TotalPrizes,
		ReferralsCount: state.ReferralsCount,
		RecentSpins: lo.Map(recent, func(r SpinRecord, _ int) StatusSpin {
			return StatusSpin{SpinRecord: r, Expired: r.Expired(cfg.Limits, now)}
		}),
	}, nil
}

// PublicPrize is the client-facing projection of a wheel segment.
type PublicPrize struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Color  string  `json:"color,omitempty"`
	Odds   float64 `json:"odds"`
}

// GetWheelConfig returns the public prize list for rendering the wheel.
// Odds are each available prize's share of the total weight.
func (e *Engine) GetWheelConfig(ctx context.Context, tenantID string) ([]PublicPrize, error) {
	cfg, err := e.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	available := cfg.AvailablePrizes()
	total := lo.SumBy(available, func(p Prize) float64 { return p.Weight })

	return lo.Map(available, func(p Prize, _ int) PublicPrize {
		odds := 0.0
		if total > 0 {
			odds = p.Weight / total
		}
		return PublicPrize{ID: p.ID, Label: p.Label, Color: p.Color, Odds: odds}
	}), nil
}

func (e *Engine) checkSubscription(ctx context.Context, cfg *TenantConfig, userID string) error {
	if !cfg.SubscriptionRequired || e.subs == nil {
		return nil
	}
	ok, err := e.subs.IsSubscribed(ctx, cfg, userID)
	if err != nil {
		// A misconfigured gate is a definite answer: a tenant that
		// requires a subscription but names no channel must not silently
		// admit everyone.
		if errors.IsCode(err, errors.ErrConfigError) {
			e.logger.Error().Err(err).Str("tenant_id", cfg.TenantID).Msg("Subscription gate misconfigured, blocking spin")
			return errors.Wrap(err, errors.ErrSubscriptionRequired, "subscription gate misconfigured")
		}
		// Transient membership-check failures stay best effort; an
		// unreachable platform must not block every spin for the tenant.
		e.logger.Warn().Err(err).Str("tenant_id", cfg.TenantID).Msg("Subscription check failed, allowing spin")
		return nil
	}
	if !ok {
		return errors.New(errors.ErrSubscriptionRequired, "channel subscription required")
	}
	return nil
}

// notifySpin fires the outbound chat notification without blocking the
// spin caller. The send uses a detached context so a canceled request does
// not cut it short.
func (e *Engine) notifySpin(cfg *TenantConfig, userID string, record SpinRecord) {
	if e.notifier == nil || record.RewardKind == RewardNone {
		return
	}

	message := fmt.Sprintf("You won %s!", record.PrizeLabel)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		if err := e.notifier.Send(ctx, cfg, userID, message); err != nil {
			e.logger.Warn().Err(err).
				Str("tenant_id", cfg.TenantID).
				Str("user_id", userID).
				Str("spin_id", record.SpinID).
				Msg("Failed to send win notification")
		}
	}()
}
