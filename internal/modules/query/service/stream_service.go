package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ragstream/internal/modules/query/domain"
	queryout "ragstream/internal/modules/query/port/out"
	"ragstream/internal/platform/clock"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/platform/id"
	"ragstream/internal/platform/logger"
)

const logModule = "query"

// StreamService owns at most one live query stream. Each session runs on
// its own goroutine; observers follow it through Subscribe.
type StreamService struct {
	clock  clock.Clock
	idGen  id.Generator
	dialer queryout.Dialer
	log    logger.Logger

	mu      sync.Mutex
	session domain.Session
	conn    queryout.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	subs    map[int]chan domain.Event
	nextSub int
}

func NewStreamService(clock clock.Clock, idGen id.Generator, dialer queryout.Dialer, log logger.Logger) *StreamService {
	done := make(chan struct{})
	close(done)
	return &StreamService{
		clock:   clock,
		idGen:   idGen,
		dialer:  dialer,
		log:     log,
		session: domain.Session{State: domain.StateClosed},
		done:    done,
		subs:    map[int]chan domain.Event{},
	}
}

// Start opens a new session for query. A blank query is ignored and reports
// started=false with no error. A second start while a session is live
// fails with ErrSessionActive.
func (s *StreamService) Start(ctx context.Context, query string) (domain.Session, bool, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Session{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Active() {
		return s.session, false, apperrors.ErrSessionActive
	}
	session, err := domain.NewSession(s.idGen.New(), query, s.clock.Now())
	if err != nil {
		return domain.Session{}, false, err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.session = session
	s.conn = nil
	s.cancel = cancel
	s.done = make(chan struct{})
	s.publishLocked(domain.Event{Kind: domain.EventState, Session: session})
	s.log.Info(logModule, "query session started", map[string]any{"session_id": session.ID})

	go s.run(runCtx, session.ID, session.Query, s.done)
	return session, true, nil
}

// Cancel closes the live session early. It reports false when nothing was
// running.
func (s *StreamService) Cancel() bool {
	return s.finish("", domain.TerminationCancelled, "cancelled by client")
}

// Wait blocks until the current session is closed or ctx is done.
func (s *StreamService) Wait(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Snapshot returns the live session, or the last one once it has closed.
func (s *StreamService) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Subscribe registers an observer. Events arrive in order; when the buffer
// is full, intermediate events are dropped (each one carries the whole
// answer so far) but the closing event of a session is always delivered.
func (s *StreamService) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Event, buffer)
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, key)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *StreamService) run(ctx context.Context, sessionID, query string, done chan struct{}) {
	defer close(done)

	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		s.finish(sessionID, domain.TerminationTransport, err.Error())
		return
	}
	if !s.attach(sessionID, conn) {
		_ = conn.Close()
		return
	}
	if err := conn.Send(ctx, query); err != nil {
		s.finish(sessionID, domain.TerminationTransport, err.Error())
		return
	}
	if !s.markSent(sessionID) {
		return
	}
	for {
		message, err := conn.Receive()
		if err != nil {
			if errors.Is(err, apperrors.ErrPeerClosed) {
				s.finish(sessionID, domain.TerminationPeerClose, err.Error())
			} else {
				s.finish(sessionID, domain.TerminationTransport, err.Error())
			}
			return
		}
		if !s.deliver(sessionID, message) {
			return
		}
	}
}

func (s *StreamService) attach(sessionID string, conn queryout.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.ID != sessionID || s.session.Opened() != nil {
		return false
	}
	s.conn = conn
	s.publishLocked(domain.Event{Kind: domain.EventState, Session: s.session})
	return true
}

func (s *StreamService) markSent(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.ID != sessionID || s.session.QuerySent() != nil {
		return false
	}
	s.publishLocked(domain.Event{Kind: domain.EventState, Session: s.session})
	return true
}

// deliver applies one inbound message and reports whether to keep reading.
func (s *StreamService) deliver(sessionID, message string) bool {
	s.mu.Lock()
	if s.session.ID != sessionID {
		s.mu.Unlock()
		return false
	}
	kind, err := s.session.Apply(message, s.clock.Now())
	if err != nil {
		// closed underneath us by Cancel
		s.mu.Unlock()
		return false
	}
	if kind == domain.MessageFragment {
		s.publishLocked(domain.Event{Kind: domain.EventFragment, Fragment: message, Session: s.session})
		s.mu.Unlock()
		return true
	}
	conn, cancel := s.releaseLocked()
	s.mu.Unlock()
	s.teardown(conn, cancel)
	return false
}

// finish closes the session with the given termination unless it is
// already closed. An empty sessionID targets whatever session is live.
func (s *StreamService) finish(sessionID string, termination domain.Termination, cause string) bool {
	s.mu.Lock()
	if sessionID != "" && s.session.ID != sessionID {
		s.mu.Unlock()
		return false
	}
	if !s.session.Close(termination, cause, s.clock.Now()) {
		s.mu.Unlock()
		return false
	}
	conn, cancel := s.releaseLocked()
	s.mu.Unlock()
	s.teardown(conn, cancel)
	return true
}

// releaseLocked publishes the closing event and hands back the resources
// to tear down outside the lock.
func (s *StreamService) releaseLocked() (queryout.Conn, context.CancelFunc) {
	session := s.session
	s.publishLocked(domain.Event{Kind: domain.EventClosed, Session: session})
	details := map[string]any{
		"session_id":  session.ID,
		"termination": string(session.Termination),
		"fragments":   session.Fragments,
	}
	switch session.Termination {
	case domain.TerminationCompleted, domain.TerminationCancelled:
		s.log.Info(logModule, "query session closed", details)
	default:
		details["cause"] = session.Cause
		s.log.Warn(logModule, "query session closed without completion", details)
	}
	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	return conn, cancel
}

func (s *StreamService) teardown(conn queryout.Conn, cancel context.CancelFunc) {
	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
}

func (s *StreamService) publishLocked(event domain.Event) {
	for _, ch := range s.subs {
		select {
		case ch <- event:
			continue
		default:
		}
		if event.Kind != domain.EventClosed {
			continue
		}
		// make room by dropping the oldest queued event
		select {
		case <-ch:
		default:
		}
		ch <- event
	}
}
