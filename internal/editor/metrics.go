package editor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Benny93/graphol-go/internal/identity"
)

const metricsNamespace = "graphol"

// Metrics holds the editor's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	// EditsTotal counts applied edits by operation.
	EditsTotal *prometheus.CounterVec

	// EdgesRejectedTotal counts refused edges by the failing rule.
	EdgesRejectedTotal *prometheus.CounterVec

	// IdentityChangesTotal counts node identity updates made by resolution.
	IdentityChangesTotal prometheus.Counter

	// IdentityRegionSize observes the number of nodes in each resolved region.
	IdentityRegionSize prometheus.Histogram
}

// NewMetrics creates the editor collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "edits_total",
				Help:      "Total number of applied structural edits by operation",
			},
			[]string{"op"},
		),
		EdgesRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "edges_rejected_total",
				Help:      "Total number of edges refused by the validity rules",
			},
			[]string{"rule"},
		),
		IdentityChangesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "identity_changes_total",
				Help:      "Total number of node identity updates",
			},
		),
		IdentityRegionSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "identity_region_size",
				Help:      "Number of nodes in each resolved identity region",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
	}
}

func (m *Metrics) edit(op string) {
	if m == nil {
		return
	}
	m.EditsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) rejected(rule string) {
	if m == nil {
		return
	}
	m.EdgesRejectedTotal.WithLabelValues(rule).Inc()
}

func (m *Metrics) resolved(res identity.Result) {
	if m == nil {
		return
	}
	m.IdentityRegionSize.Observe(float64(len(res.Region)))
	m.IdentityChangesTotal.Add(float64(len(res.Changes)))
}
