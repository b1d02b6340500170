package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SpinsTotal counts committed spins by tenant and reward kind.
	SpinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_spins_total",
			Help: "Total number of committed spins",
		},
		[]string{"tenant", "reward_kind"},
	)

	// SpinsRejectedTotal counts spins rejected before commit.
	SpinsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_spins_rejected_total",
			Help: "Total number of rejected spin attempts",
		},
		[]string{"tenant", "reason"},
	)

	// ReferralsTotal counts successfully attributed referrals.
	ReferralsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_referrals_total",
			Help: "Total number of attributed referrals",
		},
		[]string{"tenant"},
	)

	// LeadsTotal counts lead transitions by final state.
	LeadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_leads_total",
			Help: "Total number of lead state transitions",
		},
		[]string{"tenant", "state"},
	)

	// TxRetries observes how many optimistic transaction retries a
	// committed user-state update needed.
	TxRetries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wheel_user_tx_retries",
			Help:    "Retry count per committed user state transaction",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// TenantCacheHits counts tenant config cache lookups by outcome.
	TenantCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_tenant_cache_lookups_total",
			Help: "Tenant config cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// KafkaMessagesSent counts spin events published to Kafka.
	KafkaMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_kafka_messages_sent_total",
			Help: "Spin events published to Kafka by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		SpinsTotal,
		SpinsRejectedTotal,
		ReferralsTotal,
		LeadsTotal,
		TxRetries,
		TenantCacheHits,
		KafkaMessagesSent,
	)
}
