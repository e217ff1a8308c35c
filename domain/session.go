package domain

import "github.com/google/uuid"

type SessionState int

const (
	Unnamed SessionState = iota
	Named
	Terminated
)

func (s SessionState) String() string {
	switch s {
	case Unnamed:
		return "unnamed"
	case Named:
		return "named"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Verdict tells the connection handler what a frame amounted to.
type Verdict int

const (
	Ignored Verdict = iota
	Joined
	Said
	Quitting
)

// TextFilter rewrites chat text before it is rendered, e.g. to censor it.
type TextFilter func(text string) string

// Session is the naming state machine of one connection.
// Terminated is absorbing: nothing is produced after it.
type Session struct {
	ID     uuid.UUID
	state  SessionState
	name   string
	filter TextFilter
}

// NewSession builds an unnamed session. filter may be nil.
func NewSession(filter TextFilter) *Session {
	return &Session{ID: uuid.New(), state: Unnamed, filter: filter}
}

func (s *Session) State() SessionState { return s.state }
func (s *Session) Name() string        { return s.name }

// Receive applies one frame and returns the message to publish, if any.
// Chat text from an unnamed session is dropped.
func (s *Session) Receive(frame string) (Message, Verdict) {
	if s.state == Terminated || frame == "" {
		return Message{}, Ignored
	}
	cmd := ParseCommand(frame)
	switch cmd.Kind {
	case Quit:
		return Message{}, Quitting
	case SetName:
		if s.state != Unnamed || cmd.Arg == "" {
			return Message{}, Ignored
		}
		s.name = cmd.Arg
		s.state = Named
		return NewJoinedNotice(s.name), Joined
	default:
		if s.state != Named {
			return Message{}, Ignored
		}
		text := cmd.Arg
		if s.filter != nil {
			text = s.filter(text)
		}
		return NewChatMessage(s.name, text), Said
	}
}

// Leave terminates the session. The leave notice is returned only
// for a session that had named itself, and only once.
func (s *Session) Leave() (Message, bool) {
	wasNamed := s.state == Named
	s.state = Terminated
	if !wasNamed {
		return Message{}, false
	}
	return NewLeftNotice(s.name), true
}

// Abort terminates the session without producing a notice.
func (s *Session) Abort() {
	s.state = Terminated
}
