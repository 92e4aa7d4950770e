package out

import (
	"context"

	"ragstream/internal/modules/ingest/domain"
)

type FileLoader interface {
	Load(ctx context.Context, path string) (domain.FileHandle, error)
}

// TextReader turns file content into text. It fails on content that
// cannot be decoded as text.
type TextReader interface {
	ReadText(ctx context.Context, file domain.FileHandle) (string, error)
}

// Uploader submits an encoded payload and returns the chunk identifiers.
type Uploader interface {
	Upload(ctx context.Context, payload string) ([]string, error)
}

type AttemptStore interface {
	Save(ctx context.Context, attempt domain.Attempt) error
	Latest(ctx context.Context) (domain.Attempt, error)
}
