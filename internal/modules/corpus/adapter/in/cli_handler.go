package in

import (
	"context"

	"ragstream/internal/modules/corpus/dto"
	corpusin "ragstream/internal/modules/corpus/port/in"
)

type CLIHandler struct {
	usecase corpusin.Usecase
}

func NewCLIHandler(usecase corpusin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context, refresh bool) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx, dto.StatusInput{Refresh: refresh})
}

func (h CLIHandler) Search(ctx context.Context, query string, n int) ([]dto.PassageOutput, error) {
	return h.usecase.Search(ctx, dto.SearchInput{Query: query, N: n})
}
