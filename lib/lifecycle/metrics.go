package lifecycle

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atareao/expulsabot/lib/registry"
)

var (
	challengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expulsabot_challenges_issued",
		Help: "The number of challenges issued to new members by puzzle variant.",
	}, []string{"variant"})

	challengesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expulsabot_challenges_resolved",
		Help: "The number of challenges that reached a terminal outcome.",
	}, []string{"outcome"})

	resolutionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "expulsabot_challenge_resolution_seconds",
		Help:    "Time between issuing a challenge and receiving an answer.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	})

	registryMetricsOnce sync.Once
)

// registerRegistryMetrics binds the gauges to reg. The gauges can only
// be registered once, so they observe the registry of the first
// Controller built in the process. The daemon builds exactly one.
func registerRegistryMetrics(reg *registry.Registry) {
	registryMetricsOnce.Do(func() {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "expulsabot_challenges_active",
			Help: "The number of challenges currently awaiting an answer.",
		}, func() float64 {
			return float64(reg.Len())
		})

		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "expulsabot_chats_with_active_challenges",
			Help: "The number of chats with at least one pending challenge.",
		}, func() float64 {
			return float64(reg.Chats())
		})
	})
}
