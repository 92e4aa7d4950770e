package usecase

import (
	"context"
	"strings"
	"sync"

	ingestin "ragstream/internal/modules/ingest/port/in"
	"ragstream/internal/modules/query/domain"
	"ragstream/internal/modules/query/dto"
	queryin "ragstream/internal/modules/query/port/in"
	"ragstream/internal/modules/query/service"
	apperrors "ragstream/internal/platform/errors"
)

type Interactor struct {
	svc    *service.StreamService
	ingest ingestin.Usecase
}

func NewInteractor(svc *service.StreamService, ingest ingestin.Usecase) queryin.Usecase {
	return &Interactor{svc: svc, ingest: ingest}
}

// Ask starts a query session once at least one document has been uploaded.
// A blank query is a no-op even when nothing has been uploaded yet.
func (i *Interactor) Ask(ctx context.Context, input dto.AskInput) (dto.AskOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return dto.AskOutput{}, nil
	}
	if i.ingest != nil {
		ready, err := i.ingest.Ready(ctx)
		if err != nil {
			return dto.AskOutput{}, err
		}
		if !ready {
			return dto.AskOutput{}, apperrors.ErrNotReady
		}
	}
	session, started, err := i.svc.Start(ctx, input.Query)
	if err != nil {
		return dto.AskOutput{}, err
	}
	return dto.AskOutput{SessionID: session.ID, Started: started}, nil
}

func (i *Interactor) Subscribe(buffer int) (<-chan dto.StreamEvent, func()) {
	src, unsubscribe := i.svc.Subscribe(buffer)
	out := make(chan dto.StreamEvent, max(buffer, 1))
	stop := make(chan struct{})
	go func() {
		defer close(out)
		for ev := range src {
			select {
			case out <- toEvent(ev):
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(stop)
			unsubscribe()
		})
	}
}

func (i *Interactor) Wait(ctx context.Context) (dto.SessionOutput, error) {
	session, err := i.svc.Wait(ctx)
	return toOutput(session), err
}

func (i *Interactor) Cancel(context.Context) bool {
	return i.svc.Cancel()
}

func (i *Interactor) Current(context.Context) dto.SessionOutput {
	return toOutput(i.svc.Snapshot())
}

func toEvent(ev domain.Event) dto.StreamEvent {
	return dto.StreamEvent{Kind: string(ev.Kind), Fragment: ev.Fragment, Session: toOutput(ev.Session)}
}

func toOutput(s domain.Session) dto.SessionOutput {
	return dto.SessionOutput{
		ID:          s.ID,
		Query:       s.Query,
		State:       string(s.State),
		Answer:      s.Answer,
		Fragments:   s.Fragments,
		Active:      s.Active(),
		Complete:    s.Complete(),
		Termination: string(s.Termination),
		Cause:       s.Cause,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
	}
}
