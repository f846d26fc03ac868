// Package obs wires the index's operational counters and histograms into
// Prometheus. Adapted from libravdb's own internal/obs/metrics.go,
// expanded from four generic metrics to the insert/search/delete/compact/
// WAL/pressure set an embedded ANN index needs, and switched to a
// private registry per Metrics instance (via promauto.With) so multiple
// collections or repeated test construction never collide on the global
// default registerer.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/gauge/histogram the index publishes.
type Metrics struct {
	Registry *prometheus.Registry

	VectorInserts     prometheus.Counter
	VectorDeletes     prometheus.Counter
	SearchQueries     prometheus.Counter
	SearchErrors      prometheus.Counter
	SearchLatency     prometheus.Histogram
	CompactionsTotal  prometheus.Counter
	CompactionWarning prometheus.Gauge
	WALAppends        prometheus.Counter
	MemoryPressure    prometheus.Gauge
}

// NewMetrics creates a fresh Metrics instance backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		VectorInserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgevec_vector_inserts_total",
			Help: "Total vector insertions",
		}),
		VectorDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgevec_vector_soft_deletes_total",
			Help: "Total soft deletions (tombstones set)",
		}),
		SearchQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgevec_search_queries_total",
			Help: "Total search queries across all modes (dense, sparse, hybrid)",
		}),
		SearchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgevec_search_errors_total",
			Help: "Total search queries that returned an error",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgevec_search_latency_seconds",
			Help:    "Search latency",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		}),
		CompactionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgevec_compactions_total",
			Help: "Total graph compactions performed",
		}),
		CompactionWarning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "edgevec_compaction_warning",
			Help: "1 when the tombstone ratio has crossed the compaction-recommended threshold, else 0",
		}),
		WALAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgevec_wal_appends_total",
			Help: "Total write-ahead log records appended",
		}),
		MemoryPressure: factory.NewGauge(prometheus.GaugeOpts{
			Name: "edgevec_memory_pressure",
			Help: "Current memory pressure level (0=ok, 1=warn, 2=high, 3=critical)",
		}),
	}
}

// SetCompactionWarningGauge records the current compaction_warning()
// result as 0/1 for scraping.
func (m *Metrics) SetCompactionWarningGauge(warn bool) {
	if warn {
		m.CompactionWarning.Set(1)
		return
	}
	m.CompactionWarning.Set(0)
}
