package in

import (
	"context"

	"ragstream/internal/modules/query/dto"
)

type Usecase interface {
	Ask(ctx context.Context, input dto.AskInput) (dto.AskOutput, error)
	Subscribe(buffer int) (<-chan dto.StreamEvent, func())
	Wait(ctx context.Context) (dto.SessionOutput, error)
	Cancel(ctx context.Context) bool
	Current(ctx context.Context) dto.SessionOutput
}
