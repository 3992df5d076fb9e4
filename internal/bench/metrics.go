package bench

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "benchd",
		Subsystem: "engine",
		Name:      "sessions_total",
		Help:      "Generation sessions by provider and outcome",
	}, []string{"provider", "outcome"})
	liveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "benchd",
		Subsystem: "engine",
		Name:      "live_sessions",
		Help:      "Generation sessions currently running",
	})
	ttftSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "benchd",
		Subsystem: "engine",
		Name:      "ttft_seconds",
		Help:      "Time to first content delta",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider"})
	sessionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "benchd",
		Subsystem: "engine",
		Name:      "session_duration_seconds",
		Help:      "Request start to terminal outcome",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "benchd",
		Subsystem: "engine",
		Name:      "queue_depth",
		Help:      "Queued prompts including the one in flight",
	})
	broadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "benchd",
		Subsystem: "engine",
		Name:      "broadcasts_total",
		Help:      "Broadcasts dispatched",
	})
)

func init() {
	prometheus.MustRegister(sessionsTotal, liveSessions, ttftSeconds, sessionDuration, queueDepth, broadcastsTotal)
}
