// Package metrics exposes Prometheus instruments for the monitor loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auctionbot",
		Name:      "cycles_total",
		Help:      "Monitor cycles run, by result.",
	}, []string{"result"})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "auctionbot",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one monitor cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auctionbot",
		Name:      "decisions_total",
		Help:      "LLM decisions, by action and outcome.",
	}, []string{"action", "outcome"})

	LLMLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "auctionbot",
		Name:      "llm_latency_seconds",
		Help:      "Latency of LLM decision calls.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	Executions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auctionbot",
		Name:      "executions_total",
		Help:      "Listing creation attempts, by mode and status.",
	}, []string{"mode", "status"})

	WorkingSetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "auctionbot",
		Name:      "working_set_entries",
		Help:      "Listings currently cached in the working set.",
	})

	ActiveListings = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "auctionbot",
		Name:      "market_active_listings",
		Help:      "Active listings seen in the last cycle.",
	})
)

func init() {
	prometheus.MustRegister(Cycles, CycleDuration, Decisions, LLMLatency, Executions, WorkingSetSize, ActiveListings)
}

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
