package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "ragstream/internal/platform/errors"
)

// In-band control markers sent by the stream service. A fragment whose
// text equals a marker cannot be told apart from the marker itself.
const (
	EndSentinel     = "<<END>>"
	NoQuerySentinel = "<<E:NO_QUERY>>"
)

type State string

const (
	StateClosed     State = "closed"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateStreaming  State = "streaming"
)

type Termination string

const (
	TerminationNone      Termination = ""
	TerminationCompleted Termination = "completed"
	TerminationRejected  Termination = "rejected"
	TerminationTransport Termination = "transport_error"
	TerminationPeerClose Termination = "peer_closed"
	TerminationCancelled Termination = "cancelled"
)

type MessageKind int

const (
	MessageFragment MessageKind = iota
	MessageEnd
	MessageNoQuery
)

func Classify(message string) MessageKind {
	switch message {
	case EndSentinel:
		return MessageEnd
	case NoQuerySentinel:
		return MessageNoQuery
	default:
		return MessageFragment
	}
}

// Session is one query stream. Answer only grows while the session is live
// and is never touched again once it is closed.
type Session struct {
	ID          string
	Query       string
	State       State
	Answer      string
	Fragments   int
	Termination Termination
	Cause       string
	StartedAt   time.Time
	EndedAt     time.Time
}

// NewSession opens a session in the connecting state with an empty answer.
func NewSession(id, query string, at time.Time) (Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Session{}, fmt.Errorf("%w: query is empty", apperrors.ErrInvalidInput)
	}
	return Session{ID: id, Query: query, State: StateConnecting, StartedAt: at}, nil
}

func (s Session) Active() bool {
	return s.State != StateClosed
}

// Complete reports whether the answer ended with the end marker.
func (s Session) Complete() bool {
	return s.Termination == TerminationCompleted
}

func (s *Session) Opened() error {
	if s.State != StateConnecting {
		return s.transitionErr(StateOpen)
	}
	s.State = StateOpen
	return nil
}

// QuerySent moves an open session to streaming once its single query
// message is on the wire.
func (s *Session) QuerySent() error {
	if s.State != StateOpen {
		return s.transitionErr(StateStreaming)
	}
	s.State = StateStreaming
	return nil
}

// Apply handles one inbound message and returns its kind. Fragments are
// appended verbatim; a marker closes the session.
func (s *Session) Apply(message string, at time.Time) (MessageKind, error) {
	if s.State != StateStreaming {
		return MessageFragment, fmt.Errorf("%w: session %s received a message while %s", apperrors.ErrInvalidTransition, s.ID, s.State)
	}
	kind := Classify(message)
	switch kind {
	case MessageEnd:
		s.Close(TerminationCompleted, "", at)
	case MessageNoQuery:
		s.Close(TerminationRejected, "query rejected by server", at)
	default:
		s.Answer += message
		s.Fragments++
	}
	return kind, nil
}

// Close ends the session. Closing an already closed session is a no-op so
// that the first recorded termination wins.
func (s *Session) Close(termination Termination, cause string, at time.Time) bool {
	if s.State == StateClosed {
		return false
	}
	s.State = StateClosed
	s.Termination = termination
	s.Cause = cause
	s.EndedAt = at
	return true
}

func (s Session) transitionErr(to State) error {
	return fmt.Errorf("%w: session %s cannot move from %s to %s", apperrors.ErrInvalidTransition, s.ID, s.State, to)
}

// EventKind tags what changed in a session.
type EventKind string

const (
	EventState    EventKind = "state"
	EventFragment EventKind = "fragment"
	EventClosed   EventKind = "closed"
)

// Event is one observable change. Session is a snapshot taken after the
// change, so the latest event always carries the whole answer so far.
type Event struct {
	Kind     EventKind
	Fragment string
	Session  Session
}
