// Package metrics defines the Prometheus metric collectors used by the
// indexing pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the indexer.
type Metrics struct {
	DocsIndexedTotal       prometheus.Counter
	DocsDeletedTotal       prometheus.Counter
	MutationsEnqueuedTotal *prometheus.CounterVec
	CommitsTotal           *prometheus.CounterVec
	CommitBatchSize        prometheus.Histogram
	CommitDuration         prometheus.Histogram
	QueueDepth             *prometheus.GaugeVec
	StoreInsertsTotal      *prometheus.CounterVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all collectors and registers them with reg. Tests pass
// their own registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents mapped and enqueued for indexing.",
			},
		),
		DocsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_deleted_total",
				Help: "Total documents tombstoned.",
			},
		),
		MutationsEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutations_enqueued_total",
				Help: "Row mutations appended to per-index commit queues.",
			},
			[]string{"index"},
		),
		CommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commits_total",
				Help: "Commit attempts by outcome (applied, nothing, deferred).",
			},
			[]string{"outcome"},
		),
		CommitBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "commit_batch_size",
				Help:    "Number of mutations per successful commit batch.",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
			},
		),
		CommitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "commit_duration_seconds",
				Help:    "Wall time of commit drains, including the store write.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mutation_queue_depth",
				Help: "Mutations currently pending in each index queue.",
			},
			[]string{"index"},
		),
		StoreInsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_inserts_total",
				Help: "Batch writes submitted to the column store by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.DocsDeletedTotal,
		m.MutationsEnqueuedTotal,
		m.CommitsTotal,
		m.CommitBatchSize,
		m.CommitDuration,
		m.QueueDepth,
		m.StoreInsertsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
