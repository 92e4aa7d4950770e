package usecase

import (
	"context"

	"ragstream/internal/modules/corpus/dto"
	corpusin "ragstream/internal/modules/corpus/port/in"
	"ragstream/internal/modules/corpus/service"
)

type Interactor struct {
	svc *service.CorpusService
}

func NewInteractor(svc *service.CorpusService) corpusin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Status(ctx context.Context, input dto.StatusInput) (dto.StatusOutput, error) {
	status, cached, err := i.svc.Status(ctx, input.Refresh)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	return dto.StatusOutput{DocumentCount: status.DocumentCount, HasDocuments: status.HasDocuments, Cached: cached}, nil
}

func (i *Interactor) Search(ctx context.Context, input dto.SearchInput) ([]dto.PassageOutput, error) {
	passages, err := i.svc.Search(ctx, input.Query, input.N)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PassageOutput, 0, len(passages))
	for _, p := range passages {
		out = append(out, dto.PassageOutput{Content: p.Content, Source: p.Source(), Metadata: p.Metadata})
	}
	return out, nil
}
