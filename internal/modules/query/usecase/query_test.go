package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ingestdto "ragstream/internal/modules/ingest/dto"
	"ragstream/internal/modules/query/domain"
	querydto "ragstream/internal/modules/query/dto"
	queryout "ragstream/internal/modules/query/port/out"
	"ragstream/internal/modules/query/service"
	"ragstream/internal/modules/query/usecase"
	"ragstream/internal/platform/clock"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/platform/id"
	"ragstream/internal/platform/logger"
)

type fakeIngest struct {
	ready bool
	err   error
	asked int
}

func (f *fakeIngest) Submit(context.Context, ingestdto.SubmitInput) (ingestdto.AttemptOutput, error) {
	return ingestdto.AttemptOutput{}, nil
}
func (f *fakeIngest) SubmitFile(context.Context, ingestdto.FileInput) (ingestdto.AttemptOutput, error) {
	return ingestdto.AttemptOutput{}, nil
}
func (f *fakeIngest) Latest(context.Context) (ingestdto.AttemptOutput, error) {
	return ingestdto.AttemptOutput{}, apperrors.ErrNotFound
}
func (f *fakeIngest) Ready(context.Context) (bool, error) {
	f.asked++
	return f.ready, f.err
}

type scriptedConn struct {
	frames []string
	closed chan struct{}
}

func (c *scriptedConn) Send(context.Context, string) error { return nil }
func (c *scriptedConn) Receive() (string, error) {
	if len(c.frames) == 0 {
		<-c.closed
		return "", errors.New("closed")
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f, nil
}
func (c *scriptedConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

type scriptedDialer struct {
	frames []string
	dials  int
}

func (d *scriptedDialer) Dial(context.Context) (queryout.Conn, error) {
	d.dials++
	return &scriptedConn{frames: append([]string(nil), d.frames...), closed: make(chan struct{})}, nil
}

func TestAskIsGatedOnReadiness(t *testing.T) {
	t.Parallel()
	dialer := &scriptedDialer{frames: []string{"ok", domain.EndSentinel}}
	ingest := &fakeIngest{ready: false}
	svc := service.NewStreamService(clock.SystemClock{}, id.UUID{}, dialer, logger.Nop())
	uc := usecase.NewInteractor(svc, ingest)

	if _, err := uc.Ask(context.Background(), querydto.AskInput{Query: "hello"}); !errors.Is(err, apperrors.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if dialer.dials != 0 {
		t.Fatalf("gated ask must not dial")
	}

	ingest.ready = true
	out, err := uc.Ask(context.Background(), querydto.AskInput{Query: "hello"})
	if err != nil || !out.Started || out.SessionID == "" {
		t.Fatalf("expected started session, got %+v %v", out, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	final, err := uc.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Answer != "ok" || !final.Complete || final.Active || final.Termination != "completed" {
		t.Fatalf("unexpected final output %+v", final)
	}
}

func TestBlankAskIsNoOpBeforeReadinessCheck(t *testing.T) {
	t.Parallel()
	ingest := &fakeIngest{ready: false}
	dialer := &scriptedDialer{}
	uc := usecase.NewInteractor(service.NewStreamService(clock.SystemClock{}, id.UUID{}, dialer, logger.Nop()), ingest)

	out, err := uc.Ask(context.Background(), querydto.AskInput{Query: "   "})
	if err != nil || out.Started {
		t.Fatalf("blank ask must be a silent no-op, got %+v %v", out, err)
	}
	if ingest.asked != 0 || dialer.dials != 0 {
		t.Fatalf("blank ask must not touch readiness or the network")
	}
	if cur := uc.Current(context.Background()); cur.Active || cur.ID != "" {
		t.Fatalf("no session expected, got %+v", cur)
	}
}

func TestSubscribeTranslatesEventsUntilClose(t *testing.T) {
	t.Parallel()
	dialer := &scriptedDialer{frames: []string{"The ", "cat ", "sat.", domain.EndSentinel}}
	svc := service.NewStreamService(clock.SystemClock{}, id.UUID{}, dialer, logger.Nop())
	uc := usecase.NewInteractor(svc, &fakeIngest{ready: true})

	events, unsubscribe := uc.Subscribe(8)
	defer unsubscribe()
	if _, err := uc.Ask(context.Background(), querydto.AskInput{Query: "cat?"}); err != nil {
		t.Fatalf("ask: %v", err)
	}
	var last querydto.StreamEvent
	timeout := time.After(5 * time.Second)
	for !last.Closed() {
		select {
		case last = <-events:
		case <-timeout:
			t.Fatalf("no closing event")
		}
	}
	if last.Session.Answer != "The cat sat." || !last.Session.Complete {
		t.Fatalf("unexpected closing event %+v", last)
	}
	unsubscribe()
	unsubscribe()
}
