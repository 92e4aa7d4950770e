package out

import (
	"context"

	"ragstream/internal/modules/corpus/domain"
)

type Client interface {
	Status(ctx context.Context) (domain.Status, error)
	Search(ctx context.Context, query string, n int) ([]domain.Passage, error)
}
