package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Model calls by provider and outcome (success/error/timeout)
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptitude_llm_requests_total",
			Help: "Total number of generative model calls",
		},
		[]string{"provider", "status"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aptitude_llm_request_duration_seconds",
			Help:    "Time spent waiting for the generative model",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)

	LLMInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aptitude_llm_requests_in_flight",
			Help: "Model calls currently holding a concurrency slot",
		},
	)

	// Generated questions by type and whether they fell back
	QuestionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptitude_questions_generated_total",
			Help: "Total number of generated questions",
		},
		[]string{"question_type", "fallback"},
	)

	TestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptitude_tests_created_total",
			Help: "Total number of tests created",
		},
		[]string{"test_type"},
	)

	AnswersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptitude_answers_submitted_total",
			Help: "Total number of submitted answers",
		},
		[]string{"correct"},
	)

	ChunksLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aptitude_chunks_loaded",
			Help: "Number of reference chunks currently loaded",
		},
	)
)

func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
