package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookqa_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookqa_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookqa_pipeline_stage_duration_seconds",
			Help:    "Duration of each question-answering pipeline stage.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	RetrievalPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookqa_retrieval_path_total",
			Help: "Which ranking path produced the candidate list.",
		},
		[]string{"path"}, // semantic | weighted | none
	)

	RefusalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookqa_refusals_total",
			Help: "Refusal replies by the gate that forced them.",
		},
		[]string{"gate"}, // classifier | retrieval | generator | injection | grounding
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PipelineStageDuration,
		RetrievalPathTotal,
		RefusalsTotal,
	)
}
