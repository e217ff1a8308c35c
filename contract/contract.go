//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IPool runs units of work on a fixed set of workers.
type IPool interface {
	Submit(work func()) error
	Shutdown()
}

// Subscription is the receiving end of one session's outbound queue.
type Subscription interface {
	ID() uuid.UUID
	TryRecv() (domain.Message, bool)
	Len() int
}

// IRoom is the broadcaster seen from a session.
type IRoom interface {
	Publish(msg domain.Message)
	Subscribe(notify func()) (Subscription, error)
	Unsubscribe(id uuid.UUID)
}

// Measurable is a queue whose fill level can be sampled.
// A capacity of zero means unbounded.
type Measurable interface {
	Name() string
	Len() int
	Cap() int
}

// Censor replaces forbidden words and reports which ones it found.
type Censor interface {
	Censor(text string) (string, []string)
}
