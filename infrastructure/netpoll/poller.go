// Package netpoll reports read/write readiness of sockets with poll(2).
// It reports readiness, not data: callers perform the non-blocking I/O
// themselves and must accept ErrWouldBlock as "nothing to do".
package netpoll

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"chat-relay/errors"

	"golang.org/x/sys/unix"
)

type Interest int16

const (
	ReadInterest Interest = 1 << iota
	WriteInterest
	BothInterest = ReadInterest | WriteInterest
)

func (i Interest) events() int16 {
	var ev int16
	if i&ReadInterest != 0 {
		ev |= unix.POLLIN
	}
	if i&WriteInterest != 0 {
		ev |= unix.POLLOUT
	}
	return ev
}

// Source is one registered descriptor.
type Source struct {
	fd       int
	interest Interest
}

func (s *Source) Interest() Interest { return s.interest }

// Readiness is one satisfied interest returned by Wait.
// Hangup and error conditions are reported as Readable so that the
// next read surfaces them.
type Readiness struct {
	Source   *Source
	Readable bool
	Writable bool
}

// Poller watches a set of sources plus an internal wake pipe.
// Wait is meant to be called from a single goroutine, Wake from any.
type Poller struct {
	mu      sync.Mutex
	sources []*Source
	wakeR   int
	wakeW   int
	closed  bool
}

func NewPoller() (*Poller, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return nil, fmt.Errorf("wake pipe: %w", err)
		}
	}
	return &Poller{wakeR: fds[0], wakeW: fds[1]}, nil
}

// Register adds conn to the watched set.
// The descriptor stays owned by conn, which must outlive its registration.
func (p *Poller) Register(conn syscall.Conn, interest Interest) (*Source, error) {
	fd, err := descriptor(conn)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.ErrPollerClosed
	}
	src := &Source{fd: fd, interest: interest}
	p.sources = append(p.sources, src)
	return src, nil
}

func (p *Poller) SetInterest(src *Source, interest Interest) {
	p.mu.Lock()
	src.interest = interest
	p.mu.Unlock()
}

func (p *Poller) Deregister(src *Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.sources {
		if s == src {
			p.sources = append(p.sources[:i], p.sources[i+1:]...)
			return
		}
	}
}

// Wait blocks until a source is ready, the poller is woken, ctx is done
// or timeout elapses. A negative timeout waits forever.
// Being woken with nothing ready returns an empty slice and no error.
func (p *Poller) Wait(ctx context.Context, timeout time.Duration) ([]Readiness, error) {
	stop := context.AfterFunc(ctx, p.Wake)
	defer stop()

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fds, sources, err := p.pollSet()
		if err != nil {
			return nil, err
		}

		ms := -1
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return nil, errors.ErrPollTimeout
			}
			ms = int((left + time.Millisecond - 1) / time.Millisecond)
		}

		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return nil, errors.ErrPollTimeout
		}

		if fds[0].Revents != 0 {
			p.drainWake()
		}
		ready := make([]Readiness, 0, n)
		for i, src := range sources {
			rev := fds[i+1].Revents
			if rev == 0 {
				continue
			}
			ready = append(ready, Readiness{
				Source:   src,
				Readable: rev&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0,
				Writable: rev&unix.POLLOUT != 0,
			})
		}
		if err := ctx.Err(); err != nil && len(ready) == 0 {
			return nil, err
		}
		return ready, nil
	}
}

// Wake interrupts a pending or the next Wait.
func (p *Poller) Wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// A full pipe already holds a pending wake-up.
	_, _ = unix.Write(p.wakeW, []byte{1})
}

func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.sources = nil
	errR := unix.Close(p.wakeR)
	errW := unix.Close(p.wakeW)
	if errR != nil {
		return errR
	}
	return errW
}

func (p *Poller) pollSet() ([]unix.PollFd, []*Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, nil, errors.ErrPollerClosed
	}
	fds := make([]unix.PollFd, 1, len(p.sources)+1)
	fds[0] = unix.PollFd{Fd: int32(p.wakeR), Events: unix.POLLIN}
	sources := make([]*Source, len(p.sources))
	copy(sources, p.sources)
	for _, src := range sources {
		fds = append(fds, unix.PollFd{Fd: int32(src.fd), Events: src.interest.events()})
	}
	return fds, sources, nil
}

func (p *Poller) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
