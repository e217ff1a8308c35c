// Package event carries technical telemetry emitted by workers and
// consumed by a chain of handlers.
package event

import "time"

type Type string

type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}
