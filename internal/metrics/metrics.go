// Package metrics defines the Prometheus collectors for directory cache
// activity and relationship propagation. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "organizational"

// Metrics holds every collector.
type Metrics struct {
	DirectoryLookups *prometheus.CounterVec
	DirectoryBuilds  *prometheus.CounterVec
	DirectorySize    *prometheus.GaugeVec
	Propagations     *prometheus.CounterVec
	Dangling         *prometheus.CounterVec
	IdentitiesMinted prometheus.Counter
	SaveSeconds      prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		DirectoryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "lookups_total",
			Help:      "Object directory reads by type and result (hit or miss).",
		}, []string{"type", "result"}),
		DirectoryBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "builds_total",
			Help:      "Object directory rebuilds from the content store.",
		}, []string{"type"}),
		DirectorySize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "entries",
			Help:      "Entries in the most recently built directory.",
		}, []string{"type"}),
		Propagations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Reverse relationship updates written to counterpart items.",
		}, []string{"op"}),
		Dangling: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dangling_references_total",
			Help:      "Relationship ids skipped because the counterpart is not in the directory.",
		}, []string{"op"}),
		IdentitiesMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identities_minted_total",
			Help:      "Stable identifiers assigned to items.",
		}),
		SaveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Time spent in the save pipeline.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.DirectoryLookups, m.DirectoryBuilds, m.DirectorySize,
		m.Propagations, m.Dangling, m.IdentitiesMinted, m.SaveSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// Lookup records a directory read.
func (m *Metrics) Lookup(typ string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DirectoryLookups.WithLabelValues(typ, result).Inc()
}

// Built records a directory rebuild with n entries.
func (m *Metrics) Built(typ string, n int) {
	if m == nil {
		return
	}
	m.DirectoryBuilds.WithLabelValues(typ).Inc()
	m.DirectorySize.WithLabelValues(typ).Set(float64(n))
}

// Propagated records a reverse update; op is "add" or "remove".
func (m *Metrics) Propagated(op string) {
	if m == nil {
		return
	}
	m.Propagations.WithLabelValues(op).Inc()
}

// Skipped records a dangling id; op is "add" or "remove".
func (m *Metrics) Skipped(op string) {
	if m == nil {
		return
	}
	m.Dangling.WithLabelValues(op).Inc()
}

// Minted records a new stable identifier.
func (m *Metrics) Minted() {
	if m == nil {
		return
	}
	m.IdentitiesMinted.Inc()
}

// ObserveSave records the duration of one save in seconds.
func (m *Metrics) ObserveSave(seconds float64) {
	if m == nil {
		return
	}
	m.SaveSeconds.Observe(seconds)
}
