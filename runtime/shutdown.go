package runtime

import (
	"context"
	"sync"
	"sync/atomic"
)

// Shutdown is the process-wide running flag.
// It starts running and is stopped at most once; its context is the
// cancellation token handed to every loop.
type Shutdown struct {
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	running atomic.Bool
}

func NewShutdown(parent context.Context) *Shutdown {
	ctx, cancel := context.WithCancel(parent)
	s := &Shutdown{ctx: ctx, cancel: cancel}
	s.running.Store(true)
	return s
}

// Stop flips the flag. It reports whether this call was the one that did.
func (s *Shutdown) Stop() bool {
	stopped := false
	s.once.Do(func() {
		s.running.Store(false)
		s.cancel()
		stopped = true
	})
	return stopped
}

func (s *Shutdown) Running() bool {
	return s.running.Load() && s.ctx.Err() == nil
}

func (s *Shutdown) Context() context.Context { return s.ctx }

func (s *Shutdown) Done() <-chan struct{} { return s.ctx.Done() }
