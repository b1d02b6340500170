package wheel

import (
	"math"
	"time"
)

// EligibilityStatus tags the outcome of an eligibility check.
type EligibilityStatus string

const (
	StatusEligible     EligibilityStatus = "eligible"
	StatusDailyLimit   EligibilityStatus = "daily_limit_reached"
	StatusCoolingDown  EligibilityStatus = "cooling_down"
)

// Eligibility is the result of evaluating a user against tenant limits.
type Eligibility struct {
	Status            EligibilityStatus `json:"status"`
	SpinsToday        int               `json:"spinsToday"`
	RetryAfterSeconds int               `json:"retryAfterSeconds,omitempty"`
}

// Eligible reports whether a spin may proceed.
func (e Eligibility) Eligible() bool {
	return e.Status == StatusEligible
}

// EvaluateEligibility applies the tenant's spin policy to a user state at
// the given instant. Rules run in order, first failure wins:
//
//  1. daily limit — spins on the current UTC calendar day vs MaxSpinsPerDay
//  2. cooldown — seconds since the last spin vs CooldownSeconds
//
// The checks are additive; passing one does not waive the other. The daily
// counter is recomputed from spin history, so crossing a day boundary
// resets it with no separate reset job.
func EvaluateEligibility(state *UserState, limits TenantLimits, now time.Time) Eligibility {
	spinsToday := state.SpinsOnDay(now)

	if limits.MaxSpinsPerDay > 0 && spinsToday >= int(limits.MaxSpinsPerDay) {
		return Eligibility{
			Status:     StatusDailyLimit,
			SpinsToday: spinsToday,
		}
	}

	if limits.CooldownSeconds > 0 && state.LastSpinAt != nil {
		readyAt := state.LastSpinAt.Add(time.Duration(limits.CooldownSeconds) * time.Second)
		if now.Before(readyAt) {
			remaining := int(math.Ceil(readyAt.Sub(now).Seconds()))
			return Eligibility{
				Status:            StatusCoolingDown,
				SpinsToday:        spinsToday,
				RetryAfterSeconds: remaining,
			}
		}
	}

	return Eligibility{
		Status:     StatusEligible,
		SpinsToday: spinsToday,
	}
}
