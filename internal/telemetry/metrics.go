package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ServicesIngested counts service rows written by the ingest stage
	ServicesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netrisk",
			Name:      "services_ingested_total",
			Help:      "Total number of service rows upserted by ingestion",
		},
	)

	// FindingsMatched counts finding insert attempts from the CVE matcher
	FindingsMatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netrisk",
			Name:      "findings_matched_total",
			Help:      "Total number of finding inserts attempted by the CVE matcher",
		},
	)

	// LikelihoodUpdated counts finding rows updated with an EPSS score
	LikelihoodUpdated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netrisk",
			Name:      "likelihood_updated_total",
			Help:      "Total number of findings updated with exploit-likelihood data",
		},
	)

	// FindingsScored counts findings that received a risk score
	FindingsScored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netrisk",
			Name:      "findings_scored_total",
			Help:      "Total number of findings scored",
		},
	)

	// PipelineErrors counts per-stage failures that were logged and skipped
	PipelineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrisk",
			Name:      "pipeline_errors_total",
			Help:      "Total number of pipeline stage errors",
		},
		[]string{"stage"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ServicesIngested)
		prometheus.DefaultRegisterer.Register(FindingsMatched)
		prometheus.DefaultRegisterer.Register(LikelihoodUpdated)
		prometheus.DefaultRegisterer.Register(FindingsScored)
		prometheus.DefaultRegisterer.Register(PipelineErrors)
	})
}
