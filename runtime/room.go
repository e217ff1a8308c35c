package runtime

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultSubscriptionCapacity = 4

// Room aggregates messages from every session into one inbound queue
// and fans each of them out to every live subscription, in order.
// A full subscription blocks the fan-out: no message is dropped.
type Room struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	inbound  *Queue[domain.Message]
	registry *Registry
	capacity int
}

func NewRoom(log *slog.Logger, registry *Registry, capacity int, metrics *observability.Metrics) *Room {
	if capacity <= 0 {
		capacity = DefaultSubscriptionCapacity
	}
	return &Room{
		log:      log,
		metrics:  metrics,
		inbound:  NewQueue[domain.Message]("room_inbound"),
		registry: registry,
		capacity: capacity,
	}
}

func (r *Room) Publish(msg domain.Message) {
	r.inbound.Push(msg)
	r.metrics.MessagesPublished.Inc()
}

func (r *Room) Subscribe(notify func()) (contract.Subscription, error) {
	sub := newSubscription(r.capacity, notify)
	if err := r.registry.Subscribe(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Room) Unsubscribe(id uuid.UUID) {
	r.registry.Unsubscribe(id)
}

// Run is the broadcaster loop. It returns when ctx is done.
func (r *Room) Run(ctx context.Context) error {
	for {
		msg, err := r.inbound.Pop(ctx)
		if err != nil {
			r.log.Debug("Context done, room stops broadcasting")
			return nil
		}
		if err := r.fanout(ctx, msg); err != nil {
			return nil
		}
	}
}

func (r *Room) fanout(ctx context.Context, msg domain.Message) error {
	for _, sub := range r.registry.Snapshot() {
		stalled, err := sub.deliver(ctx, msg)
		if stalled {
			r.metrics.BackpressureStalls.Inc()
			r.log.Debug("Broadcaster waited on a full subscription", "subscription_id", sub.ID())
		}
		switch {
		case err == nil:
			r.metrics.MessagesDelivered.Inc()
		case err == errors.ErrSubscriptionClosed:
			// The session left while the message was in flight.
		default:
			return err
		}
	}
	return nil
}

// Queues lists the queues worth sampling: inbound first, then each subscription.
func (r *Room) Queues() []contract.Measurable {
	return append([]contract.Measurable{r.inbound},
		lo.Map(r.registry.Snapshot(), func(s *Subscription, _ int) contract.Measurable { return s })...)
}
