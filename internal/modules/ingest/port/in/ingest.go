package in

import (
	"context"

	"ragstream/internal/modules/ingest/dto"
)

type Usecase interface {
	Submit(ctx context.Context, input dto.SubmitInput) (dto.AttemptOutput, error)
	SubmitFile(ctx context.Context, input dto.FileInput) (dto.AttemptOutput, error)
	Latest(ctx context.Context) (dto.AttemptOutput, error)
	Ready(ctx context.Context) (bool, error)
}
