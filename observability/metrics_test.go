package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-relay/domain/event"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTelemetryHandler_MirrorsEvents(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := NewTelemetryHandler(metrics)

	// Given a restart, a queue sample and a censorship hit
	h.Handle(event.New(event.RestartedAfterPanicType, event.WorkerRestartedAfterPanic{WorkerName: "Room"}))
	h.Handle(event.New(event.QueueCapacityType, event.QueueCapacity{QueueName: "inbound", Length: 3}))
	h.Handle(event.New(event.CensorshipHitType, event.CensorshipHit{Words: []string{"a", "b"}}))

	// Then the matching metrics moved
	req.Equal(1.0, testutil.ToFloat64(metrics.WorkerRestarts))
	req.Equal(3.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("inbound")))
	req.Equal(2.0, testutil.ToFloat64(metrics.CensoredWords))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.ConnectionsAccepted.Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	req.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	req.True(strings.Contains(string(body), "chat_connections_accepted_total 1"))
}
