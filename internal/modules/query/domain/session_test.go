package domain_test

import (
	"errors"
	"testing"
	"time"

	"ragstream/internal/modules/query/domain"
	apperrors "ragstream/internal/platform/errors"
)

var at = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func streaming(t *testing.T) domain.Session {
	t.Helper()
	s, err := domain.NewSession("q-1", "  what is it?  ", at)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Opened(); err != nil {
		t.Fatalf("opened: %v", err)
	}
	if err := s.QuerySent(); err != nil {
		t.Fatalf("query sent: %v", err)
	}
	return s
}

func TestNewSessionTrimsAndRejectsEmpty(t *testing.T) {
	t.Parallel()
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := domain.NewSession("q", q, at); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %q, got %v", q, err)
		}
	}
	s := streaming(t)
	if s.Query != "what is it?" || s.Answer != "" || !s.Active() {
		t.Fatalf("unexpected fresh session %+v", s)
	}
}

func TestApplyConcatenatesInOrderAndExcludesSentinels(t *testing.T) {
	t.Parallel()
	s := streaming(t)
	for _, msg := range []string{"The ", "cat ", "sat."} {
		kind, err := s.Apply(msg, at)
		if err != nil || kind != domain.MessageFragment {
			t.Fatalf("apply %q: %v %v", msg, kind, err)
		}
	}
	kind, err := s.Apply(domain.EndSentinel, at)
	if err != nil || kind != domain.MessageEnd {
		t.Fatalf("apply end: %v %v", kind, err)
	}
	if s.Answer != "The cat sat." || s.Fragments != 3 {
		t.Fatalf("expected exact concatenation, got %q (%d)", s.Answer, s.Fragments)
	}
	if s.Active() || !s.Complete() {
		t.Fatalf("end marker must close a complete session")
	}
	if _, err := s.Apply("late", at); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("closed session must refuse messages, got %v", err)
	}
	if s.Answer != "The cat sat." {
		t.Fatalf("closed answer changed: %q", s.Answer)
	}
}

func TestRejectedAndFirstTerminationWins(t *testing.T) {
	t.Parallel()
	s := streaming(t)
	if kind, _ := s.Apply(domain.NoQuerySentinel, at); kind != domain.MessageNoQuery {
		t.Fatalf("expected no-query kind")
	}
	if s.Answer != "" || s.Active() || s.Complete() || s.Termination != domain.TerminationRejected {
		t.Fatalf("unexpected rejected session %+v", s)
	}
	if s.Close(domain.TerminationTransport, "late error", at) {
		t.Fatalf("second close must be a no-op")
	}
	if s.Termination != domain.TerminationRejected {
		t.Fatalf("termination overwritten: %s", s.Termination)
	}
}

func TestTransitionsAreOrdered(t *testing.T) {
	t.Parallel()
	s, _ := domain.NewSession("q", "x", at)
	if _, err := s.Apply("frag", at); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("connecting session must refuse fragments, got %v", err)
	}
	if err := s.QuerySent(); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("query cannot be sent before open, got %v", err)
	}
	s.Close(domain.TerminationTransport, "dial failed", at)
	if err := s.Opened(); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("closed session cannot reopen, got %v", err)
	}
}
