package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	QuotaBreaches       *prometheus.CounterVec
	AutoDeletions       *prometheus.CounterVec
	PhoneNumberFailures prometheus.Counter
	ProviderRequests    *prometheus.CounterVec
	ProviderRetries     prometheus.Counter
}

// New registers the domain instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		QuotaBreaches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxlane",
			Name:      "quota_breaches_total",
			Help:      "Call-time quota breaches detected, by plan.",
		}, []string{"plan"}),
		AutoDeletions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxlane",
			Name:      "auto_deletions_total",
			Help:      "Auto-deletion runs, by outcome.",
		}, []string{"outcome"}),
		PhoneNumberFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "voxlane",
			Name:      "auto_deletion_phone_number_failures_total",
			Help:      "Phone numbers that failed to delete during an auto-deletion cascade.",
		}),
		ProviderRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxlane",
			Name:      "voice_provider_requests_total",
			Help:      "Requests to the voice-assistant provider, by operation and result.",
		}, []string{"operation", "result"}),
		ProviderRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "voxlane",
			Name:      "voice_provider_retries_total",
			Help:      "Retried voice-assistant provider requests.",
		}),
	}
}
