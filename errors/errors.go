package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrJobPanic        = fmt.Errorf("job panic")
	ErrPoolClosed      = fmt.Errorf("pool is shut down")
	ErrInvalidPoolSize = fmt.Errorf("pool size must be positive")
	ErrInvalidPayload  = fmt.Errorf("invalid event payload")
)

// Readiness and non-blocking I/O
var (
	ErrWouldBlock     = fmt.Errorf("operation would block")
	ErrPollTimeout    = fmt.Errorf("poll timed out")
	ErrPollerClosed   = fmt.Errorf("poller is closed")
	ErrNotSyscallConn = fmt.Errorf("connection does not expose a file descriptor")
	ErrUnknownSource  = fmt.Errorf("source is not registered")
)

// Room and sessions
var (
	ErrSubscriptionExists = fmt.Errorf("subscription already registered")
	ErrSubscriptionClosed = fmt.Errorf("subscription closed")
	ErrInvalidUTF8        = fmt.Errorf("frame is not valid utf-8")
)

// Client
var (
	ErrTimedOut           = fmt.Errorf("timed out")
	ErrServerDisconnected = fmt.Errorf("server disconnected")
)

// Moderation
var (
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
)
