package feed

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WinUpdate is a single public winner entry flowing through the feed.
type WinUpdate struct {
	TenantID    string          `json:"tenant_id"`
	SpinID      string          `json:"spin_id"`
	UserLabel   string          `json:"user_label"`
	PrizeLabel  string          `json:"prize_label"`
	RewardKind  string          `json:"reward_kind"`
	RewardValue decimal.Decimal `json:"reward_value"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ServiceConfig configures the winner feed service.
type ServiceConfig struct {
	// BroadcastInterval controls how often buffered wins are flushed to listeners.
	BroadcastInterval time.Duration

	// HistorySize is how many recent wins are retained for the initial snapshot.
	HistorySize int

	// Logger is optional; if zero value, a no-op logger is used.
	Logger zerolog.Logger
}
