package runtime

import (
	"sync"

	"chat-relay/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry is the table of live subscriptions.
// The lock is held only to mutate or copy the table, never while sending.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{subscriptions: make(map[uuid.UUID]*Subscription)}
}

func (r *Registry) Subscribe(sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subscriptions[sub.id]; ok {
		return errors.ErrSubscriptionExists
	}
	r.subscriptions[sub.id] = sub
	return nil
}

// Unsubscribe removes and closes the subscription, releasing a
// broadcaster blocked on it.
func (r *Registry) Unsubscribe(id uuid.UUID) bool {
	r.mu.Lock()
	sub, ok := r.subscriptions[id]
	delete(r.subscriptions, id)
	r.mu.Unlock()
	if ok {
		sub.close()
	}
	return ok
}

func (r *Registry) Snapshot() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.subscriptions)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions)
}
