// Package runtime runs the chat core: the job pool, the acceptor,
// per-connection sessions and the room broadcaster.
// It orchestrates the system without containing protocol rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
)

const telemetryBufferSize = 256

type Options struct {
	Address              string
	PoolSize             int
	SubscriptionCapacity int
	FrameSize            int
	AcceptPollTimeout    time.Duration
	RestartDelay         time.Duration
	MetricInterval       time.Duration
	LowCapacityThreshold int
	Censor               contract.Censor // optional
}

type Server struct {
	log           *slog.Logger
	opts          Options
	metrics       *observability.Metrics
	telemetryChan chan event.Event
	shutdown      *Shutdown
	listener      *net.TCPListener
	pool          *Pool
	room          *Room
	supervisor    *workers.Supervisor
	censored      *event.CensoredHandler
	restarts      *event.Counter
	done          chan struct{}
	stopOnce      sync.Once
}

func NewServer(log *slog.Logger, opts Options, metrics *observability.Metrics) *Server {
	if opts.MetricInterval <= 0 {
		opts.MetricInterval = 10 * time.Second
	}
	return &Server{
		log:           log,
		opts:          opts,
		metrics:       metrics,
		telemetryChan: make(chan event.Event, telemetryBufferSize),
		done:          make(chan struct{}),
	}
}

// Start binds the listener and starts every loop.
// A bind failure is returned and nothing is left running.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Address, err)
	}
	pool, err := NewPool(s.log, s.opts.PoolSize, s.metrics, s.telemetryChan)
	if err != nil {
		_ = ln.Close()
		return err
	}

	s.listener = ln.(*net.TCPListener)
	s.pool = pool
	s.shutdown = NewShutdown(ctx)
	s.room = NewRoom(s.log, NewRegistry(), s.opts.SubscriptionCapacity, s.metrics)
	s.censored = event.NewCensoredHandler(s.log)
	s.restarts = event.NewCounter()

	sessions := NewSessionHandler(s.log, s.room, s.opts.FrameSize, s.metrics, s.telemetryChan, s.opts.Censor)
	acceptor := NewAcceptor(s.log, s.listener, s.pool, sessions.Handle, s.opts.AcceptPollTimeout, s.metrics)

	s.supervisor = workers.NewSupervisor(s.log, s.opts.RestartDelay, s.telemetryChan)
	s.supervisor.Add(
		s.room,
		acceptor,
		workers.NewTelemetryWorker(s.log, s.telemetryChan,
			event.NewCapacityHandler(s.log, s.opts.LowCapacityThreshold),
			event.NewWorkerRestartedAfterPanicHandler(s.log, s.restarts),
			event.NewProcessStatsHandler(s.log),
			s.censored,
			observability.NewTelemetryHandler(s.metrics),
		),
		workers.NewCapacityWorker(s.log, s.queues, s.telemetryChan, s.opts.MetricInterval),
		workers.NewHealthWorker(s.log, s.telemetryChan, s.opts.MetricInterval),
	)

	go func() {
		defer close(s.done)
		s.supervisor.Run(s.shutdown.Context())
	}()
	s.log.Info("Chat server started", "address", s.listener.Addr().String(), "pool_size", s.pool.Size())
	return nil
}

// Stop flips the running flag, waits for the loops, then drains the pool.
// Calling it more than once has no further effect.
func (s *Server) Stop() {
	if s.shutdown == nil {
		return
	}
	s.stopOnce.Do(func() {
		s.shutdown.Stop()
		s.supervisor.Stop()
		<-s.done
		_ = s.listener.Close()
		s.pool.Shutdown()
		s.log.Info("Chat server stopped")
	})
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }

func (s *Server) Running() bool { return s.shutdown != nil && s.shutdown.Running() }

func (s *Server) PoolStats() []WorkerStats { return s.pool.Stats() }

func (s *Server) queues() []contract.Measurable {
	return append(s.room.Queues(), s.pool.Queue())
}

// Restarts counts supervised workers restarted after a panic.
func (s *Server) Restarts() uint64 { return s.restarts.Get(event.RestartedAfterPanicType) }

// CensoredMessages counts chat lines the moderator rewrote.
func (s *Server) CensoredMessages() uint64 { return s.censored.Messages() }
