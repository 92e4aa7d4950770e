package in

import (
	"context"

	"ragstream/internal/modules/query/dto"
	queryin "ragstream/internal/modules/query/port/in"
)

type CLIHandler struct {
	usecase queryin.Usecase
}

func NewCLIHandler(usecase queryin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Ask(ctx context.Context, query string) (dto.AskOutput, error) {
	return h.usecase.Ask(ctx, dto.AskInput{Query: query})
}

func (h CLIHandler) Subscribe(buffer int) (<-chan dto.StreamEvent, func()) {
	return h.usecase.Subscribe(buffer)
}

func (h CLIHandler) Wait(ctx context.Context) (dto.SessionOutput, error) {
	return h.usecase.Wait(ctx)
}

func (h CLIHandler) Cancel(ctx context.Context) bool {
	return h.usecase.Cancel(ctx)
}

func (h CLIHandler) Current(ctx context.Context) dto.SessionOutput {
	return h.usecase.Current(ctx)
}
