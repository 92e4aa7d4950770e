package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ragstream/internal/modules/ingest/domain"
	ingestout "ragstream/internal/modules/ingest/port/out"
	apperrors "ragstream/internal/platform/errors"

	_ "modernc.org/sqlite"
)

type SQLiteAttemptStore struct {
	db *sql.DB
}

func NewSQLiteAttemptStore(dbPath string) (ingestout.AttemptStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteAttemptStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteAttemptStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS upload_attempts (
  id TEXT PRIMARY KEY,
  file_name TEXT NOT NULL,
  media_type TEXT NOT NULL,
  status TEXT NOT NULL,
  chunk_ids TEXT NOT NULL,
  failure_kind TEXT NOT NULL,
  failure_detail TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create upload_attempts table: %w", err)
	}
	return nil
}

// Save upserts the attempt. The encoded payload is not stored.
func (s *SQLiteAttemptStore) Save(ctx context.Context, attempt domain.Attempt) error {
	ids := attempt.ChunkIDs
	if ids == nil {
		ids = []string{}
	}
	encodedIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode chunk ids: %w", err)
	}
	var kind, detail string
	if attempt.Failure != nil {
		kind, detail = string(attempt.Failure.Kind), attempt.Failure.Detail
	}
	const stmt = `
INSERT INTO upload_attempts (id, file_name, media_type, status, chunk_ids, failure_kind, failure_detail, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status=excluded.status,
  chunk_ids=excluded.chunk_ids,
  failure_kind=excluded.failure_kind,
  failure_detail=excluded.failure_detail,
  updated_at=excluded.updated_at;
`
	_, err = s.db.ExecContext(ctx, stmt,
		attempt.ID,
		attempt.FileName,
		attempt.MediaType,
		string(attempt.Status),
		string(encodedIDs),
		kind,
		detail,
		attempt.CreatedAt.UnixNano(),
		attempt.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert upload attempt: %w", err)
	}
	return nil
}

func (s *SQLiteAttemptStore) Latest(ctx context.Context) (domain.Attempt, error) {
	const query = `
SELECT id, file_name, media_type, status, chunk_ids, failure_kind, failure_detail, created_at, updated_at
FROM upload_attempts
ORDER BY created_at DESC, rowid DESC
LIMIT 1;
`
	var (
		attempt              domain.Attempt
		status, ids          string
		kind, detail         string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query).Scan(
		&attempt.ID, &attempt.FileName, &attempt.MediaType, &status, &ids, &kind, &detail, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, apperrors.ErrNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load latest upload attempt: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &attempt.ChunkIDs); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode chunk ids: %w", err)
	}
	attempt.Status = domain.Status(status)
	if kind != "" {
		attempt.Failure = &domain.Failure{Kind: domain.FailureKind(kind), Detail: detail}
	}
	attempt.CreatedAt = time.Unix(0, createdAt).UTC()
	attempt.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return attempt, nil
}
