package runtime

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"unicode/utf8"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/infrastructure/netpoll"
	"chat-relay/moderation"
	"chat-relay/observability"
)

type endReason int

const (
	peerClosed endReason = iota
	quitRequested
	ioFailure
	serverShutdown
)

func (r endReason) String() string {
	switch r {
	case peerClosed:
		return "peer_closed"
	case quitRequested:
		return "quit"
	case ioFailure:
		return "io_failure"
	case serverShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// SessionHandler runs one connection inside a pool job.
// It owns the connection, a private poller and the session's subscription.
type SessionHandler struct {
	log           *slog.Logger
	room          contract.IRoom
	censor        contract.Censor
	metrics       *observability.Metrics
	telemetryChan chan event.Event
	frameSize     int
}

// NewSessionHandler builds a handler. censor and telemetryChan may be nil.
func NewSessionHandler(
	log *slog.Logger,
	room contract.IRoom,
	frameSize int,
	metrics *observability.Metrics,
	telemetryChan chan event.Event,
	censor contract.Censor,
) *SessionHandler {
	if frameSize <= 0 {
		frameSize = domain.DefaultFrameSize
	}
	return &SessionHandler{
		log:           log,
		room:          room,
		censor:        censor,
		metrics:       metrics,
		telemetryChan: telemetryChan,
		frameSize:     frameSize,
	}
}

type connState struct {
	h       *SessionHandler
	log     *slog.Logger
	conn    syscall.Conn
	session *domain.Session
	scanner *domain.FrameScanner
	sub     contract.Subscription
	poller  *netpoll.Poller
	src     *netpoll.Source
	readBuf []byte
	pending []byte
}

// Handle serves conn until the peer leaves, an I/O error occurs or ctx is done.
// conn is always closed on return.
func (h *SessionHandler) Handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	h.metrics.SessionsActive.Inc()
	defer h.metrics.SessionsActive.Dec()

	var session *domain.Session
	session = domain.NewSession(h.filter(func() string { return session.Name() }))
	log := h.log.With("session_id", session.ID, "remote", conn.RemoteAddr().String())

	sc, err := netpoll.SyscallConn(conn)
	if err != nil {
		log.Error("Unsupported connection", "error", err)
		return
	}
	poller, err := netpoll.NewPoller()
	if err != nil {
		log.Error("Cannot create poller", "error", err)
		return
	}
	defer poller.Close()
	src, err := poller.Register(sc, netpoll.ReadInterest)
	if err != nil {
		log.Error("Cannot register connection", "error", err)
		return
	}
	sub, err := h.room.Subscribe(poller.Wake)
	if err != nil {
		log.Error("Cannot subscribe to the room", "error", err)
		return
	}
	log.Info("Connection opened")

	c := &connState{
		h:       h,
		log:     log,
		conn:    sc,
		session: session,
		scanner: domain.NewFrameScanner(h.frameSize),
		sub:     sub,
		poller:  poller,
		src:     src,
		readBuf: make([]byte, h.frameSize),
	}
	reason := c.serve(ctx)

	// Unsubscribing first keeps the leave notice away from its own author.
	h.room.Unsubscribe(sub.ID())
	c.finish(reason)
}

func (h *SessionHandler) filter(author func() string) domain.TextFilter {
	if h.censor == nil {
		return nil
	}
	return func(text string) string {
		censored, words := h.censor.Censor(text)
		if len(words) > 0 {
			h.emit(event.New(event.CensorshipHitType, event.CensorshipHit{
				Author: author(),
				Words:  words,
				Lang:   moderation.DetectLanguage(text),
			}))
		}
		return censored
	}
}

func (h *SessionHandler) emit(e event.Event) {
	if h.telemetryChan == nil {
		return
	}
	select {
	case h.telemetryChan <- e:
	default:
		h.log.Debug("Observability telemetry event lost")
	}
}

func (c *connState) serve(ctx context.Context) endReason {
	for {
		if ctx.Err() != nil {
			return serverShutdown
		}
		// Write interest only with output pending, so an idle session sleeps.
		interest := netpoll.ReadInterest
		if len(c.pending) > 0 || c.sub.Len() > 0 {
			interest = netpoll.BothInterest
		}
		c.poller.SetInterest(c.src, interest)

		ready, err := c.poller.Wait(ctx, -1)
		if err != nil {
			if ctx.Err() != nil {
				return serverShutdown
			}
			c.log.Error("Readiness wait failed", "error", err)
			return ioFailure
		}
		for _, r := range ready {
			if r.Readable {
				if reason, done := c.onReadable(); done {
					return reason
				}
			}
			if r.Writable {
				if reason, done := c.onWritable(); done {
					return reason
				}
			}
		}
	}
}

func (c *connState) onReadable() (endReason, bool) {
	n, err := netpoll.Read(c.conn, c.readBuf)
	switch {
	case err == errors.ErrWouldBlock:
		return 0, false
	case err == io.EOF:
		if frame, ok := c.scanner.Flush(); ok {
			if reason, done := c.handleFrame(frame); done {
				return reason, true
			}
		}
		return peerClosed, true
	case err != nil:
		c.log.Error("Read failed", "error", err)
		return ioFailure, true
	}

	truncated := c.scanner.Truncated()
	for _, frame := range c.scanner.Feed(c.readBuf[:n]) {
		if reason, done := c.handleFrame(frame); done {
			return reason, true
		}
	}
	if cut := c.scanner.Truncated() - truncated; cut > 0 {
		c.h.metrics.FramesRejected.WithLabelValues(observability.ReasonTruncated).Add(float64(cut))
		c.log.Debug("Frame cut at ceiling", "frame_size", c.h.frameSize)
	}
	return 0, false
}

func (c *connState) handleFrame(frame []byte) (endReason, bool) {
	if !utf8.Valid(frame) {
		c.h.metrics.FramesRejected.WithLabelValues(observability.ReasonInvalidUTF8).Inc()
		c.log.Warn("Dropping malformed frame", "error", errors.ErrInvalidUTF8, "bytes", len(frame))
		return 0, false
	}
	text := strings.TrimSpace(string(frame))
	msg, verdict := c.session.Receive(text)
	switch verdict {
	case domain.Joined:
		c.log.Info("Participant joined", "name", c.session.Name())
		c.h.room.Publish(msg)
	case domain.Said:
		c.h.room.Publish(msg)
	case domain.Quitting:
		return quitRequested, true
	case domain.Ignored:
		if text != "" && c.session.State() == domain.Unnamed {
			c.h.metrics.FramesRejected.WithLabelValues(observability.ReasonUnnamed).Inc()
			c.log.Debug("Dropping text from unnamed session")
		}
	}
	return 0, false
}

func (c *connState) onWritable() (endReason, bool) {
	if len(c.pending) == 0 {
		msg, ok := c.sub.TryRecv()
		if !ok {
			return 0, false
		}
		c.pending = msg.Wire()
	}
	n, err := netpoll.Write(c.conn, c.pending)
	if err == errors.ErrWouldBlock {
		return 0, false
	}
	if err != nil {
		c.log.Error("Write failed", "error", err)
		return ioFailure, true
	}
	c.pending = c.pending[n:]
	return 0, false
}

func (c *connState) finish(reason endReason) {
	if reason == serverShutdown {
		c.session.Abort()
		c.log.Info("Connection closed by shutdown")
		return
	}
	if msg, ok := c.session.Leave(); ok {
		c.h.room.Publish(msg)
	}
	c.log.Info("Connection closed", "reason", reason.String(), "name", c.session.Name())
}
