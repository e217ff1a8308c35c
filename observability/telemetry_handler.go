package observability

import "chat-relay/domain/event"

// TelemetryHandler mirrors technical events into Prometheus.
type TelemetryHandler struct {
	metrics *Metrics
}

func NewTelemetryHandler(metrics *Metrics) *TelemetryHandler {
	return &TelemetryHandler{metrics: metrics}
}

func (h *TelemetryHandler) Handle(e event.Event) {
	switch payload := e.Payload.(type) {
	case event.WorkerRestartedAfterPanic:
		h.metrics.WorkerRestarts.Inc()
	case event.QueueCapacity:
		h.metrics.QueueDepth.WithLabelValues(payload.QueueName).Set(float64(payload.Length))
	case event.CensorshipHit:
		h.metrics.CensoredWords.Add(float64(len(payload.Words)))
	}
}
