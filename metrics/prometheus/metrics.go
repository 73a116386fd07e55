// Package prometheus provides Prometheus metrics for the podcast pipeline.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "podforge"

var (
	// providerRequestDuration is a histogram of LLM provider API call duration.
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of LLM provider API calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	// providerRequestsTotal is a counter of provider API calls.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider API calls",
		},
		[]string{"provider", "model", "status"}, // status: success, error
	)

	// speechRenderDuration is a histogram of TTS synthesis duration per segment.
	speechRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_render_duration_seconds",
			Help:      "Duration of TTS synthesis per utterance in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"voice"},
	)

	// speechRendersTotal is a counter of TTS synthesis calls.
	speechRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_renders_total",
			Help:      "Total number of TTS synthesis calls",
		},
		[]string{"voice", "status"},
	)

	// imageJobsTotal is a counter of image-generation jobs by terminal state.
	imageJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_jobs_total",
			Help:      "Total number of image-generation jobs by terminal state",
		},
		[]string{"state"}, // completed, failed, timeout
	)

	// imageJobPolls is a histogram of poll attempts per image job.
	imageJobPolls = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_job_polls",
			Help:      "Poll attempts needed per image-generation job",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	// sseReconnectsTotal is a counter of relay SSE reconnect attempts.
	sseReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_reconnects_total",
			Help:      "Total number of research relay SSE reconnect attempts",
		},
	)

	// podcastsGeneratedTotal is a counter of completed podcast generations.
	podcastsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "podcasts_generated_total",
			Help:      "Total number of podcast generation requests",
		},
		[]string{"status"},
	)
)

// allMetrics lists every collector the exporter registers.
var allMetrics = []prometheus.Collector{
	providerRequestDuration,
	providerRequestsTotal,
	speechRenderDuration,
	speechRendersTotal,
	imageJobsTotal,
	imageJobPolls,
	sseReconnectsTotal,
	podcastsGeneratedTotal,
}

// RecordProviderRequest records one provider API call.
func RecordProviderRequest(provider, model, status string, duration time.Duration) {
	providerRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	providerRequestsTotal.WithLabelValues(provider, model, status).Inc()
}

// RecordSpeechRender records one TTS synthesis call.
func RecordSpeechRender(voice, status string, duration time.Duration) {
	speechRenderDuration.WithLabelValues(voice).Observe(duration.Seconds())
	speechRendersTotal.WithLabelValues(voice, status).Inc()
}

// RecordImageJob records an image-generation job reaching a terminal state.
func RecordImageJob(state string, polls int) {
	imageJobsTotal.WithLabelValues(state).Inc()
	imageJobPolls.Observe(float64(polls))
}

// RecordSSEReconnect records one relay reconnect attempt.
func RecordSSEReconnect() {
	sseReconnectsTotal.Inc()
}

// RecordPodcastGenerated records one podcast generation request outcome.
func RecordPodcastGenerated(status string) {
	podcastsGeneratedTotal.WithLabelValues(status).Inc()
}
