package in

import (
	"context"

	"ragstream/internal/modules/corpus/dto"
)

type Usecase interface {
	Status(ctx context.Context, input dto.StatusInput) (dto.StatusOutput, error)
	Search(ctx context.Context, input dto.SearchInput) ([]dto.PassageOutput, error)
}
