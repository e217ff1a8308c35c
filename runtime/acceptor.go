package runtime

import (
	"context"
	"log/slog"
	"net"
	"syscall"
	"time"

	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/infrastructure/netpoll"
	"chat-relay/observability"
)

const DefaultAcceptPollTimeout = 500 * time.Millisecond

// Backoff bounds after a failed accept (EMFILE, ENOBUFS...).
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// ConnHandler serves one accepted connection and closes it.
type ConnHandler func(ctx context.Context, conn net.Conn)

// Acceptor owns the listening socket. Each wake drains the whole
// backlog and submits one pool job per connection.
type Acceptor struct {
	log         *slog.Logger
	listener    *net.TCPListener
	pool        contract.IPool
	handle      ConnHandler
	pollTimeout time.Duration
	metrics     *observability.Metrics
	accept      func(listener syscall.Conn) (net.Conn, error)
}

func NewAcceptor(
	log *slog.Logger,
	listener *net.TCPListener,
	pool contract.IPool,
	handle ConnHandler,
	pollTimeout time.Duration,
	metrics *observability.Metrics,
) *Acceptor {
	if pollTimeout <= 0 {
		pollTimeout = DefaultAcceptPollTimeout
	}
	return &Acceptor{
		log:         log,
		listener:    listener,
		pool:        pool,
		handle:      handle,
		pollTimeout: pollTimeout,
		metrics:     metrics,
		accept:      netpoll.Accept,
	}
}

func (a *Acceptor) Run(ctx context.Context) error {
	poller, err := netpoll.NewPoller()
	if err != nil {
		return err
	}
	defer poller.Close()
	if _, err := poller.Register(a.listener, netpoll.ReadInterest); err != nil {
		return err
	}
	a.log.Info("Accepting connections", "address", a.listener.Addr().String())

	var backoff time.Duration
	for {
		// Bounded wait so the shutdown flag is seen even without new connections.
		_, err := poller.Wait(ctx, a.pollTimeout)
		switch {
		case ctx.Err() != nil:
			a.log.Debug("Context done, acceptor stops")
			return nil
		case err == errors.ErrPollTimeout:
			continue
		case err != nil:
			return err
		}
		if err := a.drain(ctx); err != nil {
			// The backlog stays readable, so waiting again at once would spin.
			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			a.log.Error("Accept failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				a.log.Debug("Context done, acceptor stops")
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
	}
}

func (a *Acceptor) drain(ctx context.Context) error {
	for {
		conn, err := a.accept(a.listener)
		if err == errors.ErrWouldBlock {
			return nil
		}
		if err != nil {
			return err
		}
		a.dispatch(ctx, conn)
	}
}

func (a *Acceptor) dispatch(ctx context.Context, conn net.Conn) {
	if err := a.pool.Submit(func() { a.handle(ctx, conn) }); err != nil {
		a.log.Warn("Connection refused", "remote", conn.RemoteAddr().String(), "error", err)
		_ = conn.Close()
		return
	}
	a.metrics.ConnectionsAccepted.Inc()
	a.log.Debug("Connection queued", "remote", conn.RemoteAddr().String())
}
