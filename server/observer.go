package server

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/events/kafka"
	"github.com/kristianakila/restbek2/pkg/feed"
	"github.com/kristianakila/restbek2/wheel"
)

// SpinFanout implements wheel.SpinObserver. It publishes committed spins to
// the Kafka spin topic and mirrors wins into the local winner feed. Both
// paths are best effort and never block the spin caller.
type SpinFanout struct {
	producer *kafka.Producer
	topic    string
	feed     *feed.Service
	logger   zerolog.Logger
}

// NewSpinFanout creates a fanout observer. producer may be nil when Kafka
// is not configured; feed may be nil to skip the local winner feed.
func NewSpinFanout(producer *kafka.Producer, topic string, feedSvc *feed.Service, logger zerolog.Logger) *SpinFanout {
	return &SpinFanout{
		producer: producer,
		topic:    topic,
		feed:     feedSvc,
		logger:   logger.With().Str("component", "spin_fanout").Logger(),
	}
}

// SpinCommitted publishes the spin event and feeds non-empty wins to the
// winner feed.
func (f *SpinFanout) SpinCommitted(ctx context.Context, tenant *wheel.TenantConfig, userID string, record wheel.SpinRecord) {
	if f.producer != nil && f.topic != "" {
		event := kafka.SpinEvent{
			TenantID:    tenant.TenantID,
			UserID:      userID,
			SpinID:      record.SpinID,
			PrizeID:     record.PrizeID,
			PrizeLabel:  record.PrizeLabel,
			RewardKind:  string(record.RewardKind),
			RewardValue: record.RewardValue,
			CreatedAt:   record.CreatedAt,
		}
		if err := f.producer.SendSpinEvent(f.topic, event); err != nil {
			f.logger.Warn().Err(err).Str("spin_id", record.SpinID).Msg("Failed to enqueue spin event")
		}
	}

	if f.feed != nil && record.RewardKind != wheel.RewardNone {
		f.feed.Publish(feed.WinUpdate{
			TenantID:    tenant.TenantID,
			SpinID:      record.SpinID,
			UserLabel:   MaskUserID(userID),
			PrizeLabel:  record.PrizeLabel,
			RewardKind:  string(record.RewardKind),
			RewardValue: record.RewardValue,
			Timestamp:   record.CreatedAt,
		})
	}
}

// FeedSpinEvent mirrors a spin event from Kafka into the winner feed. Used
// as the consumer handler so wins from other instances show up locally.
func FeedSpinEvent(feedSvc *feed.Service) kafka.SpinEventHandler {
	return func(event kafka.SpinEvent) {
		if event.RewardKind == string(wheel.RewardNone) {
			return
		}
		feedSvc.Publish(feed.WinUpdate{
			TenantID:    event.TenantID,
			SpinID:      event.SpinID,
			UserLabel:   MaskUserID(event.UserID),
			PrizeLabel:  event.PrizeLabel,
			RewardKind:  event.RewardKind,
			RewardValue: event.RewardValue,
			Timestamp:   event.CreatedAt,
		})
	}
}

// MaskUserID hides most of a user id for public display.
func MaskUserID(userID string) string {
	if len(userID) <= 4 {
		return "****"
	}
	return userID[:4] + "****"
}
