package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"ragstream/internal/modules/ingest/domain"
	ingestout "ragstream/internal/modules/ingest/port/out"
)

type LocalFileLoader struct{}

func NewLocalFileLoader() ingestout.FileLoader {
	return &LocalFileLoader{}
}

// Load reads a local file and sniffs its media type from the content, the
// way a browser declares one for a dropped file.
func (l *LocalFileLoader) Load(_ context.Context, path string) (domain.FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.FileHandle{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return domain.FileHandle{}, fmt.Errorf("%s is a directory", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.FileHandle{}, fmt.Errorf("read file: %w", err)
	}
	return domain.FileHandle{
		Name:      filepath.Base(path),
		MediaType: mimetype.Detect(content).String(),
		Content:   content,
	}, nil
}
