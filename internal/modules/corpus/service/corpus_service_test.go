package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ragstream/internal/modules/corpus/domain"
	"ragstream/internal/modules/corpus/service"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/platform/logger"
)

type fakeClient struct {
	statusCalls int
	count       int
	lastN       int
	lastQuery   string
}

func (f *fakeClient) Status(context.Context) (domain.Status, error) {
	f.statusCalls++
	f.count++
	return domain.Status{DocumentCount: f.count, HasDocuments: true}, nil
}

func (f *fakeClient) Search(_ context.Context, query string, n int) ([]domain.Passage, error) {
	f.lastQuery, f.lastN = query, n
	return []domain.Passage{{Content: "chunk", Metadata: map[string]any{"source": "notes.md"}}}, nil
}

func TestStatusIsCachedUntilRefresh(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	svc := service.NewCorpusService(client, time.Minute, logger.Nop())

	first, cached, err := svc.Status(context.Background(), false)
	if err != nil || cached || first.DocumentCount != 1 {
		t.Fatalf("first lookup should hit the client: %+v %t %v", first, cached, err)
	}
	second, cached, _ := svc.Status(context.Background(), false)
	if !cached || second.DocumentCount != 1 || client.statusCalls != 1 {
		t.Fatalf("second lookup should be cached: %+v %t calls=%d", second, cached, client.statusCalls)
	}
	fresh, cached, _ := svc.Status(context.Background(), true)
	if cached || fresh.DocumentCount != 2 {
		t.Fatalf("refresh must bypass the cache: %+v %t", fresh, cached)
	}

	uncached := service.NewCorpusService(&fakeClient{}, 0, logger.Nop())
	_, _, _ = uncached.Status(context.Background(), false)
	if _, cached, _ := uncached.Status(context.Background(), false); cached {
		t.Fatalf("zero ttl must disable caching")
	}
}

func TestSearchDefaultsAndValidation(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	svc := service.NewCorpusService(client, 0, logger.Nop())

	passages, err := svc.Search(context.Background(), "  cats  ", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if client.lastN != domain.DefaultSearchLimit || client.lastQuery != "cats" {
		t.Fatalf("expected trimmed query with default n, got %q %d", client.lastQuery, client.lastN)
	}
	if len(passages) != 1 || passages[0].Source() != "notes.md" {
		t.Fatalf("unexpected passages %+v", passages)
	}
	if _, err := svc.Search(context.Background(), " ", 3); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("blank search must be invalid, got %v", err)
	}
	if _, err := svc.Search(context.Background(), "x", -1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("negative n must be invalid, got %v", err)
	}
}
