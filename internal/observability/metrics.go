package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	CacheLookups    *prometheus.CounterVec
	ModelCalls      *prometheus.CounterVec
	BackoffSeconds  prometheus.Counter
	AnswerDuration  prometheus.Histogram
	SynthesisErrors prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Local knowledge lookups by result.",
		}, []string{"result"}),
		ModelCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Generative model invocations by outcome.",
		}, []string{"outcome"}),
		BackoffSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_backoff_seconds_total",
			Help:      "Total time spent sleeping between throttled attempts.",
		}),
		AnswerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer pipeline duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		SynthesisErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_errors_total",
			Help:      "Speech synthesis failures.",
		}),
	}
}

func (m *Metrics) ObserveAnswerDuration(d time.Duration) {
	m.AnswerDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
