package dto

import "time"

type AskInput struct {
	Query string
}

type AskOutput struct {
	SessionID string
	Started   bool
}

type SessionOutput struct {
	ID          string
	Query       string
	State       string
	Answer      string
	Fragments   int
	Active      bool
	Complete    bool
	Termination string
	Cause       string
	StartedAt   time.Time
	EndedAt     time.Time
}

type StreamEvent struct {
	Kind     string
	Fragment string
	Session  SessionOutput
}

// Closed reports whether this event ends its session.
func (e StreamEvent) Closed() bool {
	return e.Kind == "closed"
}
