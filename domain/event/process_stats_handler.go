package event

import (
	"fmt"
	"log/slog"

	"chat-relay/errors"
)

type ProcessStatsHandler struct {
	log *slog.Logger
}

func NewProcessStatsHandler(log *slog.Logger) *ProcessStatsHandler {
	return &ProcessStatsHandler{log: log}
}

func (h ProcessStatsHandler) Handle(event Event) {
	switch event.Type {
	case ProcessStatsType:
		payload, ok := event.Payload.(ProcessStats)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug(fmt.Sprintf("[HEALTH] PID %d | THREADS %d | CPU %.2f%% | RSS %d MB | GOROUTINES %d",
			payload.PID, payload.Threads, payload.Cpu, payload.RSS/1024/1024, payload.Goroutines))
	}
}
