package runtime

import (
	"context"
	"fmt"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/google/uuid"
)

// Subscription is one session's bounded outbound queue.
// The room is its only producer, the owning session its only consumer.
type Subscription struct {
	id     uuid.UUID
	ch     chan domain.Message
	done   chan struct{}
	once   sync.Once
	notify func()
}

func newSubscription(capacity int, notify func()) *Subscription {
	if notify == nil {
		notify = func() {}
	}
	return &Subscription{
		id:     uuid.New(),
		ch:     make(chan domain.Message, capacity),
		done:   make(chan struct{}),
		notify: notify,
	}
}

func (s *Subscription) ID() uuid.UUID { return s.id }

func (s *Subscription) TryRecv() (domain.Message, bool) {
	select {
	case msg := <-s.ch:
		return msg, true
	default:
		return domain.Message{}, false
	}
}

func (s *Subscription) Len() int     { return len(s.ch) }
func (s *Subscription) Cap() int     { return cap(s.ch) }
func (s *Subscription) Name() string { return fmt.Sprintf("subscription:%s", s.id) }

// deliver enqueues msg, blocking while the queue is full.
// It reports whether it had to wait.
func (s *Subscription) deliver(ctx context.Context, msg domain.Message) (stalled bool, err error) {
	select {
	case <-s.done:
		return false, errors.ErrSubscriptionClosed
	default:
	}
	select {
	case s.ch <- msg:
	default:
		stalled = true
		select {
		case s.ch <- msg:
		case <-s.done:
			return stalled, errors.ErrSubscriptionClosed
		case <-ctx.Done():
			return stalled, ctx.Err()
		}
	}
	s.notify()
	return stalled, nil
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}
