package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus instruments of the recognition pipeline
type Metrics struct {
	// Capture metrics
	SamplesCaptured  prometheus.Counter
	ReadAnomalies    prometheus.Counter
	CaptureFailures  prometheus.Counter
	CaptureChunkSize prometheus.Gauge

	// Recognition metrics
	RecognitionTicks   prometheus.Counter
	InferenceDuration  prometheus.Histogram
	InferenceErrors    prometheus.Counter
	ContractViolations prometheus.Counter
	TopScore           prometheus.Histogram

	// Command metrics
	CommandsDetected *prometheus.CounterVec
	DispatchDropped  prometheus.Counter

	// Pipeline metrics
	PipelineStatus prometheus.Gauge

	// Listener metrics
	RefereeActions  *prometheus.CounterVec
	ClipsWritten    prometheus.Counter
	ClipErrors      prometheus.Counter
	WebhookRequests *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg
// registers with a fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)

	return &Metrics{
		SamplesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_capture_samples_total",
			Help: "Total number of audio samples written to the ring buffer",
		}),
		ReadAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_capture_read_anomalies_total",
			Help: "Total number of empty or overflowed microphone reads",
		}),
		CaptureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_capture_failures_total",
			Help: "Total number of capture loops that stopped on an error",
		}),
		CaptureChunkSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "referee_capture_chunk_samples",
			Help: "Samples requested per microphone read",
		}),

		RecognitionTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_recognition_ticks_total",
			Help: "Total number of recognition iterations",
		}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "referee_inference_duration_seconds",
			Help:    "Time spent in the inference adapter per window",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		InferenceErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_inference_errors_total",
			Help: "Total number of failed inference calls",
		}),
		ContractViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_smoother_contract_violations_total",
			Help: "Total number of inputs rejected by the command smoother",
		}),
		TopScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "referee_top_average_score",
			Help:    "Averaged score of the winning label per iteration",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),

		CommandsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referee_commands_detected_total",
			Help: "Total number of confirmed new commands by label",
		}, []string{"label"}),
		DispatchDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_dispatch_dropped_total",
			Help: "Total number of command events dropped because the listener queue was full",
		}),

		PipelineStatus: factory.NewGauge(prometheus.GaugeOpts{
			Name: "referee_pipeline_status",
			Help: "Pipeline status: 0 stopped, 1 paused, 2 working",
		}),

		RefereeActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referee_actions_total",
			Help: "Total number of referee actions by action and outcome",
		}, []string{"action", "outcome"}),
		ClipsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_clips_written_total",
			Help: "Total number of command windows saved as wav clips",
		}),
		ClipErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "referee_clip_errors_total",
			Help: "Total number of clips that could not be written",
		}),
		WebhookRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referee_webhook_requests_total",
			Help: "Total number of webhook deliveries by result",
		}, []string{"result"}),
	}
}
