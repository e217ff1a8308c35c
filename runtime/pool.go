package runtime

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"sync"
	"sync/atomic"

	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
)

type jobKind int

const (
	newJob jobKind = iota
	terminate
)

// Job is either a unit of work or the poison pill telling one worker to stop.
type Job struct {
	kind jobKind
	work func()
}

func NewJob(work func()) Job { return Job{kind: newJob, work: work} }

// Terminate stops exactly one worker.
func Terminate() Job { return Job{kind: terminate} }

// WorkerStats is what one pool worker did over its lifetime.
type WorkerStats struct {
	ID         int
	Completed  uint64
	Panicked   uint64
	Terminates uint64
}

type poolWorker struct {
	id         int
	completed  atomic.Uint64
	panicked   atomic.Uint64
	terminates atomic.Uint64
}

// Pool is a fixed set of workers, each pinned to one OS thread,
// consuming jobs from a shared queue.
type Pool struct {
	log           *slog.Logger
	metrics       *observability.Metrics
	telemetryChan chan event.Event
	queue         *Queue[Job]
	workers       []*poolWorker
	wg            sync.WaitGroup
	mu            sync.RWMutex
	closed        bool
}

func NewPool(log *slog.Logger, size int, metrics *observability.Metrics, telemetryChan chan event.Event) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrInvalidPoolSize, size)
	}
	p := &Pool{
		log:           log,
		metrics:       metrics,
		telemetryChan: telemetryChan,
		queue:         NewQueue[Job]("job_queue"),
		workers:       make([]*poolWorker, size),
	}
	for i := range p.workers {
		w := &poolWorker{id: i}
		p.workers[i] = w
		p.wg.Add(1)
		go p.loop(w)
	}
	return p, nil
}

// Submit enqueues work and returns at once.
func (p *Pool) Submit(work func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.ErrPoolClosed
	}
	p.queue.Push(NewJob(work))
	return nil
}

// Shutdown enqueues one Terminate per worker, behind every job already
// queued, and waits for all workers to exit.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for range p.workers {
			p.queue.Push(Terminate())
		}
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Size() int { return len(p.workers) }

// Queue exposes the job queue for sampling.
func (p *Pool) Queue() *Queue[Job] { return p.queue }

func (p *Pool) Stats() []WorkerStats {
	stats := make([]WorkerStats, 0, len(p.workers))
	for _, w := range p.workers {
		stats = append(stats, WorkerStats{
			ID:         w.id,
			Completed:  w.completed.Load(),
			Panicked:   w.panicked.Load(),
			Terminates: w.terminates.Load(),
		})
	}
	return stats
}

func (p *Pool) loop(w *poolWorker) {
	defer p.wg.Done()
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	for {
		job, err := p.queue.Pop(context.Background())
		if err != nil {
			return
		}
		switch job.kind {
		case newJob:
			if err := p.execute(w, job.work); err != nil {
				w.panicked.Add(1)
				continue
			}
			w.completed.Add(1)
		case terminate:
			w.terminates.Add(1)
			p.log.Debug("Pool worker terminated", "worker_id", w.id)
			return
		}
	}
}

func (p *Pool) execute(w *poolWorker, work func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrJobPanic
			p.log.Error("Job panicked, worker keeps serving", "worker_id", w.id, "panic", r)
			if p.metrics != nil {
				p.metrics.JobPanics.Inc()
			}
			p.emit(event.New(event.JobPanickedType, event.JobPanicked{WorkerID: w.id, Reason: fmt.Sprint(r)}))
		}
	}()
	work()
	return nil
}

func (p *Pool) emit(e event.Event) {
	if p.telemetryChan == nil {
		return
	}
	select {
	case p.telemetryChan <- e:
	default:
		p.log.Debug("Observability telemetry event lost")
	}
}
