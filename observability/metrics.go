// Package observability exposes the server's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

// Frame rejection reasons
const (
	ReasonInvalidUTF8 = "invalid_utf8"
	ReasonTruncated   = "truncated"
	ReasonUnnamed     = "unnamed"
)

type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	SessionsActive      prometheus.Gauge
	MessagesPublished   prometheus.Counter
	MessagesDelivered   prometheus.Counter
	FramesRejected      *prometheus.CounterVec
	BackpressureStalls  prometheus.Counter
	JobPanics           prometheus.Counter
	WorkerRestarts      prometheus.Counter
	QueueDepth          *prometheus.GaugeVec
	CensoredWords       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Connections handed to the job pool.",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently running on a pool worker.",
		}),
		MessagesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Messages pushed to the room inbound queue.",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages enqueued into a subscription.",
		}),
		FramesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rejected_total",
			Help:      "Inbound frames dropped or cut, by reason.",
		}, []string{"reason"}),
		BackpressureStalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_stalls_total",
			Help:      "Times the broadcaster waited on a full subscription.",
		}),
		JobPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_panics_total",
			Help:      "Pool jobs that panicked.",
		}),
		WorkerRestarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_restarts_total",
			Help:      "Supervised workers restarted after a panic.",
		}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Last sampled length of internal queues.",
		}, []string{"queue"}),
		CensoredWords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "censored_words_total",
			Help:      "Words replaced by the moderator.",
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
