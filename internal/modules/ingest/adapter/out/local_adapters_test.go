package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ingestout "ragstream/internal/modules/ingest/adapter/out"
	"ragstream/internal/modules/ingest/domain"
	apperrors "ragstream/internal/platform/errors"
)

func TestLocalFileLoaderDetectsMediaType(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(mdPath, []byte("# Notes\n\nHello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	jsonPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(jsonPath, []byte(`{"a": [1, 2]}`), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	loader := ingestout.NewLocalFileLoader()
	md, err := loader.Load(context.Background(), mdPath)
	if err != nil {
		t.Fatalf("load md: %v", err)
	}
	if md.Name != "notes.md" || !strings.HasPrefix(md.MediaType, "text/plain") {
		t.Fatalf("unexpected handle %s %s", md.Name, md.MediaType)
	}
	js, err := loader.Load(context.Background(), jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if js.MediaType != "application/json" {
		t.Fatalf("expected application/json, got %s", js.MediaType)
	}
	if _, err := loader.Load(context.Background(), filepath.Join(dir, "missing.md")); err == nil {
		t.Fatalf("missing file must fail")
	}
	if _, err := loader.Load(context.Background(), dir); err == nil {
		t.Fatalf("directory must fail")
	}
}

func TestLocalTextReader(t *testing.T) {
	t.Parallel()
	reader := ingestout.NewLocalTextReader()

	text, err := reader.ReadText(context.Background(), domain.FileHandle{Name: "a.txt", Content: append([]byte{0xEF, 0xBB, 0xBF}, "héllo"...)})
	if err != nil {
		t.Fatalf("read utf8: %v", err)
	}
	if text != "héllo" {
		t.Fatalf("expected BOM stripped text, got %q", text)
	}
	if _, err := reader.ReadText(context.Background(), domain.FileHandle{Name: "b.txt", Content: []byte{0xff, 0xfe, 0x00}}); err == nil {
		t.Fatalf("invalid UTF-8 must fail")
	}
	if _, err := reader.ReadText(context.Background(), domain.FileHandle{Name: "c.pdf", MediaType: "application/pdf", Content: []byte("not a pdf")}); err == nil {
		t.Fatalf("malformed pdf must fail")
	}
}

func TestSQLiteAttemptStoreLatestAndUpsert(t *testing.T) {
	t.Parallel()
	store, err := ingestout.NewSQLiteAttemptStore(filepath.Join(t.TempDir(), ".ragstream", "ragstream.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Latest(context.Background()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found on empty store, got %v", err)
	}

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	first := domain.NewAttempt("a-1", domain.FileHandle{Name: "one.md", MediaType: "text/plain"}, base)
	_ = first.BeginReading(base)
	_ = first.BeginSubmitting("eA==", base)
	_ = first.Succeed([]string{"c1", "c2"}, base)
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := domain.NewAttempt("a-2", domain.FileHandle{Name: "two.png", MediaType: "image/png"}, base.Add(time.Second))
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("save second idle: %v", err)
	}
	_ = second.Fail(domain.FailureValidation, "image/png", base.Add(2*time.Second))
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("save second failed: %v", err)
	}

	latest, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != "a-2" || latest.Status != domain.StatusFailed {
		t.Fatalf("expected failed a-2 as latest, got %s %s", latest.ID, latest.Status)
	}
	if latest.Failure == nil || latest.Failure.Kind != domain.FailureValidation || latest.Message() != domain.RejectedMessage {
		t.Fatalf("failure not restored: %+v", latest.Failure)
	}
	if !latest.UpdatedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("updated_at not restored: %s", latest.UpdatedAt)
	}
}

func TestSQLiteAttemptStoreRejectsCorruptDatabase(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "ragstream.db")
	if err := os.WriteFile(dbPath, []byte(strings.Repeat("not a database ", 128)), 0o644); err != nil {
		t.Fatalf("write corrupt db: %v", err)
	}
	if _, err := ingestout.NewSQLiteAttemptStore(dbPath); err == nil {
		t.Fatalf("expected schema error for a corrupt database file")
	}

	if err := os.Remove(dbPath); err != nil {
		t.Fatalf("remove corrupt db: %v", err)
	}
	store, err := ingestout.NewSQLiteAttemptStore(dbPath)
	if err != nil {
		t.Fatalf("reopen after failure: %v", err)
	}
	if _, err := store.Latest(context.Background()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected empty store, got %v", err)
	}
}
