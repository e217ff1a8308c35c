package event

import (
	"fmt"
	"log/slog"

	"chat-relay/errors"
)

// CapacityHandler handles samples of queue fill levels.
// A bounded queue close to full means its consumer is behind and the
// broadcaster is about to block on it.
type CapacityHandler struct {
	log                  *slog.Logger
	lowCapacityThreshold int
}

func NewCapacityHandler(log *slog.Logger, lowCapacityThreshold int) *CapacityHandler {
	return &CapacityHandler{log: log, lowCapacityThreshold: lowCapacityThreshold}
}

func (h CapacityHandler) Handle(event Event) {
	switch event.Type {
	case QueueCapacityType:
		payload, ok := event.Payload.(QueueCapacity)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug(fmt.Sprintf("Queue %s usage: %d / %d", payload.QueueName, payload.Length, payload.Capacity))
		if payload.Capacity <= 0 {
			// Unbounded queue
			return
		}
		capacityLeft := payload.Capacity - payload.Length
		if capacityLeft <= h.lowCapacityThreshold {
			h.log.Warn("queue close to full", "queue", payload.QueueName, "capacity_left", capacityLeft)
		}
	}
}
