package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extraction metrics
	CandidatesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_candidates_extracted_total",
			Help: "Candidate records produced by an extraction strategy",
		},
		[]string{"source", "strategy"},
	)

	StageRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_stage_records_total",
			Help: "Records leaving each pipeline stage",
		},
		[]string{"source", "stage"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_source_failures_total",
			Help: "Source pipelines that failed and contributed no records",
		},
		[]string{"source"},
	)

	DetailFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_detail_fetches_total",
			Help: "Detail page fetches issued for description enrichment",
		},
		[]string{"status"},
	)

	// LLM metrics
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Chat completion requests sent to the LLM endpoint",
		},
		[]string{"operation", "status"},
	)

	// Handler metrics
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_invocations_total",
			Help: "Handler invocations by mode and status code",
		},
		[]string{"mode", "status_code"},
	)

	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auction_invocation_duration_seconds",
			Help:    "Handler invocation duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "version"},
	)
)

// Init records static application info.
func Init(serviceName, version string) {
	ApplicationInfo.WithLabelValues(serviceName, version).Set(1)
}
