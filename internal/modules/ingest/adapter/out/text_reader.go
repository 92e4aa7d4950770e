package out

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"rsc.io/pdf"

	"ragstream/internal/modules/ingest/domain"
	ingestout "ragstream/internal/modules/ingest/port/out"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type LocalTextReader struct{}

func NewLocalTextReader() ingestout.TextReader {
	return &LocalTextReader{}
}

func (r *LocalTextReader) ReadText(_ context.Context, file domain.FileHandle) (string, error) {
	if isPDF(file) {
		return readPDFText(file)
	}
	content := bytes.TrimPrefix(file.Content, utf8BOM)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", file.Name)
	}
	return string(content), nil
}

func isPDF(file domain.FileHandle) bool {
	return strings.Contains(strings.ToLower(file.MediaType), "application/pdf") ||
		strings.HasSuffix(strings.ToLower(file.Name), ".pdf")
}

func readPDFText(file domain.FileHandle) (text string, err error) {
	// rsc.io/pdf panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read pdf %s: %v", file.Name, rec)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	pages := make([]string, 0, doc.NumPage())
	for n := 1; n <= doc.NumPage(); n++ {
		p := doc.Page(n)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		parts := make([]string, 0, len(content.Text))
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			parts = append(parts, t.S)
		}
		if len(parts) > 0 {
			pages = append(pages, strings.Join(parts, " "))
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdf %s has no extractable text", file.Name)
	}
	return strings.Join(pages, "\n\n"), nil
}
