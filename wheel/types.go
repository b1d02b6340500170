package wheel

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RewardKind classifies what a prize pays out.
type RewardKind string

const (
	RewardPoints     RewardKind = "points"
	RewardGrandPrize RewardKind = "grand_prize"
	RewardNone       RewardKind = "none"
)

// Prize is one segment of a tenant's wheel. Weight is probability mass
// relative to the other prizes; it does not need to sum to 1.
type Prize struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Color       string          `json:"color,omitempty"`
	Weight      float64         `json:"weight"`
	RewardKind  RewardKind      `json:"rewardKind"`
	RewardValue decimal.Decimal `json:"rewardValue"`
	Available   bool            `json:"available"`
}

// TenantLimits holds the per-tenant spin policy.
type TenantLimits struct {
	MaxSpinsPerDay  uint `json:"maxSpinsPerDay"`
	CooldownSeconds uint `json:"cooldownSeconds"`
	PrizeExpiryDays uint `json:"prizeExpiryDays"`
}

// TenantConfig is the immutable per-tenant configuration. The engine only
// ever sees a cached, read-only copy of it.
type TenantConfig struct {
	TenantID             string       `json:"tenantId"`
	Title                string       `json:"title,omitempty"`
	Prizes               []Prize      `json:"prizes"`
	Limits               TenantLimits `json:"limits"`
	SubscriptionRequired bool         `json:"subscriptionRequired"`
	SubscriptionChatID   string       `json:"subscriptionChatId,omitempty"`
	ReferralEnabled      bool         `json:"referralEnabled"`
	BotToken             string       `json:"botToken,omitempty"`
}

// AvailablePrizes returns prizes that can currently be won, in table order.
func (c *TenantConfig) AvailablePrizes() []Prize {
	out := make([]Prize, 0, len(c.Prizes))
	for _, p := range c.Prizes {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}

// LeadState is the lead sub-state of a spin record. It transitions only
// pending -> submitted or pending -> fallen_back, never both, never back.
type LeadState string

const (
	LeadPending   LeadState = "pending"
	LeadSubmitted LeadState = "submitted"
	LeadFallback  LeadState = "fallen_back"
)

// Contact holds the contact details a user submits to claim a prize.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// SpinRecord is one completed spin. Immutable once created except for the
// lead sub-state, which LeadCapture mutates by SpinID.
type SpinRecord struct {
	SpinID      string          `json:"spinId"`
	CreatedAt   time.Time       `json:"createdAt"`
	PrizeID     string          `json:"prizeId"`
	PrizeLabel  string          `json:"prizeLabel,omitempty"`
	RewardKind  RewardKind      `json:"rewardKind"`
	RewardValue decimal.Decimal `json:"rewardValue"`
	LeadState   LeadState       `json:"leadState"`
	LeadContact *Contact        `json:"leadContact,omitempty"`
	LeadReason  string          `json:"leadReason,omitempty"`
}

// Expired reports whether the won prize is past the tenant's expiry window.
// Expiry is a read-time interpretation; records are never deleted.
func (r *SpinRecord) Expired(limits TenantLimits, now time.Time) bool {
	if limits.PrizeExpiryDays == 0 {
		return false
	}
	deadline := r.CreatedAt.Add(time.Duration(limits.PrizeExpiryDays) * 24 * time.Hour)
	return now.After(deadline)
}

// UserState is the one mutable document per (tenant, user). All writes go
// through the user store transaction; see Engine.
type UserState struct {
	UserID            string       `json:"userId"`
	CreatedAt         time.Time    `json:"createdAt"`
	Spins             []SpinRecord `json:"spins"`
	TotalSpins        int          `json:"totalSpins"`
	TotalPrizes       int          `json:"totalPrizes"`
	LastSpinAt        *time.Time   `json:"lastSpinAt,omitempty"`
	InvitedUserIDs    []string     `json:"invitedUserIds,omitempty"`
	ReferralsCount    int          `json:"referralsCount"`
	ReferrerProcessed bool         `json:"referrerProcessed"`
	ReferrerID        string       `json:"referrerId,omitempty"`
}

// NewUserState creates the lazily-initialized state for a user's first
// interaction with a tenant.
func NewUserState(userID string, now time.Time) *UserState {
	return &UserState{
		UserID:    userID,
		CreatedAt: now,
	}
}

// HasInvited reports whether the given user id was already attributed to
// this referrer.
func (u *UserState) HasInvited(userID string) bool {
	for _, id := range u.InvitedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FindSpin returns the spin record with the given id, or nil.
func (u *UserState) FindSpin(spinID string) *SpinRecord {
	for i := range u.Spins {
		if u.Spins[i].SpinID == spinID {
			return &u.Spins[i]
		}
	}
	return nil
}

// SpinsOnDay counts spins whose CreatedAt falls on the given UTC calendar
// day. The daily counter is always recomputed from history; there is no
// stored counter to reset.
func (u *UserState) SpinsOnDay(day time.Time) int {
	y, m, d := day.UTC().Date()
	count := 0
	for i := range u.Spins {
		sy, sm, sd := u.Spins[i].CreatedAt.UTC().Date()
		if sy == y && sm == m && sd == d {
			count++
		}
	}
	return count
}

// ToJSON serializes UserState to JSON.
func (u *UserState) ToJSON() ([]byte, error) {
	return json.Marshal(u)
}

// UserStateFromJSON deserializes UserState from JSON.
func UserStateFromJSON(data []byte) (*UserState, error) {
	var state UserState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
