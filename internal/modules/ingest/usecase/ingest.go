package usecase

import (
	"context"
	"fmt"
	"strings"

	"ragstream/internal/modules/ingest/domain"
	"ragstream/internal/modules/ingest/dto"
	ingestin "ragstream/internal/modules/ingest/port/in"
	ingestout "ragstream/internal/modules/ingest/port/out"
	"ragstream/internal/modules/ingest/service"
	apperrors "ragstream/internal/platform/errors"
)

type Interactor struct {
	svc    *service.IngestService
	loader ingestout.FileLoader
}

func NewInteractor(svc *service.IngestService, loader ingestout.FileLoader) ingestin.Usecase {
	return &Interactor{svc: svc, loader: loader}
}

func (i *Interactor) Submit(ctx context.Context, input dto.SubmitInput) (dto.AttemptOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return dto.AttemptOutput{}, fmt.Errorf("%w: file path is required", apperrors.ErrInvalidInput)
	}
	if i.loader == nil {
		return dto.AttemptOutput{}, fmt.Errorf("file loader is not configured")
	}
	file, err := i.loader.Load(ctx, path)
	if err != nil {
		return dto.AttemptOutput{}, err
	}
	attempt, err := i.svc.Submit(ctx, file)
	if err != nil {
		return dto.AttemptOutput{}, err
	}
	return toOutput(attempt), nil
}

func (i *Interactor) SubmitFile(ctx context.Context, input dto.FileInput) (dto.AttemptOutput, error) {
	attempt, err := i.svc.Submit(ctx, domain.FileHandle{Name: input.Name, MediaType: input.MediaType, Content: input.Content})
	if err != nil {
		return dto.AttemptOutput{}, err
	}
	return toOutput(attempt), nil
}

func (i *Interactor) Latest(ctx context.Context) (dto.AttemptOutput, error) {
	attempt, err := i.svc.Latest(ctx)
	if err != nil {
		return dto.AttemptOutput{}, err
	}
	return toOutput(attempt), nil
}

func (i *Interactor) Ready(ctx context.Context) (bool, error) {
	return i.svc.Ready(ctx)
}

func toOutput(a domain.Attempt) dto.AttemptOutput {
	out := dto.AttemptOutput{
		ID:        a.ID,
		FileName:  a.FileName,
		MediaType: a.MediaType,
		Status:    string(a.Status),
		ChunkIDs:  append([]string(nil), a.ChunkIDs...),
		Succeeded: a.Status == domain.StatusSucceeded,
		Message:   a.Message(),
		UpdatedAt: a.UpdatedAt,
	}
	if a.Failure != nil {
		out.FailureKind = string(a.Failure.Kind)
	}
	return out
}
