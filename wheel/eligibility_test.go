package wheel

import (
	"testing"
	"time"
)

func stateWithSpins(userID string, spinTimes ...time.Time) *UserState {
	state := NewUserState(userID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	for i, ts := range spinTimes {
		rec := SpinRecord{SpinID: userID + "-spin", CreatedAt: ts, LeadState: LeadPending}
		state.Spins = append(state.Spins, rec)
		state.TotalSpins++
		if i == len(spinTimes)-1 {
			last := ts
			state.LastSpinAt = &last
		}
	}
	return state
}

func TestEvaluateEligibility(t *testing.T) {
	noon := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		state      *UserState
		limits     TenantLimits
		now        time.Time
		wantStatus EligibilityStatus
		wantSpins  int
		wantRetry  int
	}{
		{
			name:       "new user is eligible",
			state:      NewUserState("u1", noon),
			limits:     TenantLimits{MaxSpinsPerDay: 1, CooldownSeconds: 60},
			now:        noon,
			wantStatus: StatusEligible,
		},
		{
			name:       "daily limit reached",
			state:      stateWithSpins("u1", noon.Add(-2*time.Hour)),
			limits:     TenantLimits{MaxSpinsPerDay: 1},
			now:        noon,
			wantStatus: StatusDailyLimit,
			wantSpins:  1,
		},
		{
			name:       "limit zero means unlimited",
			state:      stateWithSpins("u1", noon.Add(-3*time.Hour), noon.Add(-2*time.Hour), noon.Add(-time.Hour)),
			limits:     TenantLimits{MaxSpinsPerDay: 0},
			now:        noon,
			wantStatus: StatusEligible,
			wantSpins:  3,
		},
		{
			name:       "counter resets across utc midnight",
			state:      stateWithSpins("u1", noon),
			limits:     TenantLimits{MaxSpinsPerDay: 1},
			now:        time.Date(2024, 6, 16, 0, 0, 1, 0, time.UTC),
			wantStatus: StatusEligible,
			wantSpins:  0,
		},
		{
			name:       "yesterday's spins do not count",
			state:      stateWithSpins("u1", noon.Add(-24*time.Hour), noon.Add(-time.Hour)),
			limits:     TenantLimits{MaxSpinsPerDay: 2},
			now:        noon,
			wantStatus: StatusEligible,
			wantSpins:  1,
		},
		{
			name:       "cooldown active",
			state:      stateWithSpins("u1", noon.Add(-30*time.Second)),
			limits:     TenantLimits{MaxSpinsPerDay: 10, CooldownSeconds: 60},
			now:        noon,
			wantStatus: StatusCoolingDown,
			wantSpins:  1,
			wantRetry:  30,
		},
		{
			name:       "cooldown remaining rounds up",
			state:      stateWithSpins("u1", noon.Add(-59*time.Second).Add(-500*time.Millisecond)),
			limits:     TenantLimits{MaxSpinsPerDay: 10, CooldownSeconds: 60},
			now:        noon,
			wantStatus: StatusCoolingDown,
			wantSpins:  1,
			wantRetry:  1,
		},
		{
			name:       "cooldown expired exactly",
			state:      stateWithSpins("u1", noon.Add(-60*time.Second)),
			limits:     TenantLimits{MaxSpinsPerDay: 10, CooldownSeconds: 60},
			now:        noon,
			wantStatus: StatusEligible,
			wantSpins:  1,
		},
		{
			name:       "daily limit checked before cooldown",
			state:      stateWithSpins("u1", noon.Add(-10*time.Second)),
			limits:     TenantLimits{MaxSpinsPerDay: 1, CooldownSeconds: 3600},
			now:        noon,
			wantStatus: StatusDailyLimit,
			wantSpins:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateEligibility(tt.state, tt.limits, tt.now)
			if got.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, got.Status)
			}
			if got.SpinsToday != tt.wantSpins {
				t.Errorf("expected %d spins today, got %d", tt.wantSpins, got.SpinsToday)
			}
			if got.RetryAfterSeconds != tt.wantRetry {
				t.Errorf("expected retry after %d, got %d", tt.wantRetry, got.RetryAfterSeconds)
			}
		})
	}
}

func TestSpinsOnDayUsesUTC(t *testing.T) {
	// 23:30 UTC on the 15th is 01:30 on the 16th in UTC+2; the counter must
	// follow the UTC date.
	spinAt := time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC)
	state := stateWithSpins("u1", spinAt)

	plusTwo := time.FixedZone("UTC+2", 2*3600)
	localNext := time.Date(2024, 6, 16, 1, 45, 0, 0, plusTwo) // 23:45 UTC on the 15th

	if got := state.SpinsOnDay(localNext); got != 1 {
		t.Errorf("expected 1 spin on the utc day, got %d", got)
	}

	utcNext := time.Date(2024, 6, 16, 0, 15, 0, 0, time.UTC)
	if got := state.SpinsOnDay(utcNext); got != 0 {
		t.Errorf("expected 0 spins after utc midnight, got %d", got)
	}
}
