package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// CapacityWorker periodically samples the fill level of internal queues.
// Reading a length never blocks the queue's producers or consumers.
// It's okay if a sample is dropped because the next tick sends a fresh one.
type CapacityWorker struct {
	log            *slog.Logger
	queues         func() []contract.Measurable
	telemetryChan  chan event.Event
	metricInterval time.Duration
}

// NewCapacityWorker samples what queues returns on each tick, so the set
// may change between ticks.
func NewCapacityWorker(log *slog.Logger,
	queues func() []contract.Measurable, telemetryChan chan event.Event,
	metricInterval time.Duration) *CapacityWorker {
	return &CapacityWorker{
		log:            log,
		queues:         queues,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w CapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity sampling")
			return nil
		case <-ticker.C:
			for _, q := range w.queues() {
				select {
				case <-ctx.Done():
					return nil
				case w.telemetryChan <- toCapacityEvent(q.Name(), q.Cap(), q.Len()):
				default:
					w.log.Debug("Observability telemetry event lost")
				}
			}
		}
	}
}

func toCapacityEvent(name string, capacity, length int) event.Event {
	return event.New(event.QueueCapacityType, event.QueueCapacity{
		QueueName: name,
		Capacity:  capacity,
		Length:    length,
	})
}
