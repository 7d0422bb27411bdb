package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for workflow counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onebatch_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// WorkflowTransitions counts publish workflow operations by transition and outcome.
	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onebatch_workflow_transitions_total",
		Help: "Publish workflow transitions by kind and outcome",
	}, []string{"transition", "outcome"})

	// GalleryCacheLookups counts gallery cache hits and misses.
	GalleryCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onebatch_gallery_cache_lookups_total",
		Help: "Published gallery cache lookups by result",
	}, []string{"result"})

	// ImageUploads counts processed uploads by outcome.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onebatch_image_uploads_total",
		Help: "Image uploads by outcome",
	}, []string{"outcome"})
)

// RecordTransition increments the workflow counter for a finished operation.
func RecordTransition(transition string, err error, rejected bool) {
	outcome := OutcomeOK
	switch {
	case err != nil && rejected:
		outcome = OutcomeRejected
	case err != nil:
		outcome = OutcomeError
	}
	WorkflowTransitions.WithLabelValues(transition, outcome).Inc()
}
