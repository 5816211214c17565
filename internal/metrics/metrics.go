// Copyright 2025 Chainanchor
//
// Package metrics registers the Prometheus series the anchoring cycle
// reports.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every series the coordinator, scheduler, and garbage
// collector increment.
type Metrics struct {
	CycleDuration    prometheus.Histogram
	CandidatesTotal  prometheus.Counter
	RequestsFailed   prometheus.Counter
	AnchorsEmitted   prometheus.Counter
	GCUnpinnedTotal  prometheus.Counter
	ReadyPromoted    prometheus.Counter
}

// New registers the metrics against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchor_cycle_duration_seconds",
			Help:    "Duration of one anchoring cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anchor_candidates_total",
			Help: "Number of candidates produced across all cycles.",
		}),
		RequestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anchor_requests_failed_total",
			Help: "Number of requests marked FAILED.",
		}),
		AnchorsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anchor_commits_emitted_total",
			Help: "Number of anchor-commit records successfully emitted.",
		}),
		GCUnpinnedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anchor_gc_unpinned_total",
			Help: "Number of streams unpinned by the garbage collector.",
		}),
		ReadyPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anchor_ready_promoted_total",
			Help: "Number of requests returned by readiness promotion: PENDING rows promoted to READY plus stale READY rows retried.",
		}),
	}

	reg.MustRegister(
		m.CycleDuration,
		m.CandidatesTotal,
		m.RequestsFailed,
		m.AnchorsEmitted,
		m.GCUnpinnedTotal,
		m.ReadyPromoted,
	)
	return m
}
