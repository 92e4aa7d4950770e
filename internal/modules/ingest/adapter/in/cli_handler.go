package in

import (
	"context"

	"ragstream/internal/modules/ingest/dto"
	ingestin "ragstream/internal/modules/ingest/port/in"
)

type CLIHandler struct {
	usecase ingestin.Usecase
}

func NewCLIHandler(usecase ingestin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Upload(ctx context.Context, path string) (dto.AttemptOutput, error) {
	return h.usecase.Submit(ctx, dto.SubmitInput{Path: path})
}

func (h CLIHandler) UploadFile(ctx context.Context, name, mediaType string, content []byte) (dto.AttemptOutput, error) {
	return h.usecase.SubmitFile(ctx, dto.FileInput{Name: name, MediaType: mediaType, Content: content})
}

func (h CLIHandler) Latest(ctx context.Context) (dto.AttemptOutput, error) {
	return h.usecase.Latest(ctx)
}

func (h CLIHandler) Ready(ctx context.Context) (bool, error) {
	return h.usecase.Ready(ctx)
}
