package service

import (
	"context"
	"errors"
	"sync"

	"ragstream/internal/modules/ingest/domain"
	ingestout "ragstream/internal/modules/ingest/port/out"
	"ragstream/internal/platform/clock"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/platform/id"
	"ragstream/internal/platform/logger"
)

const logModule = "ingest"

type IngestService struct {
	clock    clock.Clock
	idGen    id.Generator
	reader   ingestout.TextReader
	uploader ingestout.Uploader
	store    ingestout.AttemptStore
	log      logger.Logger

	mu   sync.Mutex
	busy bool
}

func NewIngestService(
	clock clock.Clock,
	idGen id.Generator,
	reader ingestout.TextReader,
	uploader ingestout.Uploader,
	store ingestout.AttemptStore,
	log logger.Logger,
) *IngestService {
	return &IngestService{clock: clock, idGen: idGen, reader: reader, uploader: uploader, store: store, log: log}
}

// Submit runs one attempt to a terminal state. Outcomes of the attempt
// itself (rejection, read or service failure) are reported on the returned
// attempt; the error is reserved for overlap and persistence failures.
// Only one submission runs at a time; an overlapping call gets
// ErrUploadInProgress.
func (s *IngestService) Submit(ctx context.Context, file domain.FileHandle) (domain.Attempt, error) {
	if !s.acquire() {
		return domain.Attempt{}, apperrors.ErrUploadInProgress
	}
	defer s.release()

	attempt := domain.NewAttempt(s.idGen.New(), file, s.clock.Now())
	details := map[string]any{"attempt_id": attempt.ID, "file": file.Name, "media_type": file.MediaType}

	if !domain.Accepts(file) {
		_ = attempt.Fail(domain.FailureValidation, file.MediaType, s.clock.Now())
		s.log.Info(logModule, "file rejected by type policy", details)
		return attempt, s.store.Save(ctx, attempt)
	}

	if err := attempt.BeginReading(s.clock.Now()); err != nil {
		return attempt, err
	}
	if err := s.store.Save(ctx, attempt); err != nil {
		return attempt, err
	}
	text, err := s.reader.ReadText(ctx, file)
	if err != nil {
		details["error"] = err
		s.log.Warn(logModule, "read failed", details)
		return s.fail(ctx, attempt, domain.FailureRead, err.Error())
	}

	if err := attempt.BeginSubmitting(domain.Encode(text), s.clock.Now()); err != nil {
		return attempt, err
	}
	if err := s.store.Save(ctx, attempt); err != nil {
		return attempt, err
	}
	chunkIDs, err := s.uploader.Upload(ctx, attempt.EncodedPayload)
	if err != nil {
		details["error"] = err
		s.log.Error(logModule, "upload failed", details)
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			return s.fail(ctx, attempt, domain.FailureService, svcErr.Detail)
		}
		return s.fail(ctx, attempt, domain.FailureTransport, err.Error())
	}
	if len(chunkIDs) == 0 {
		s.log.Error(logModule, "upload returned no chunk ids", details)
		return s.fail(ctx, attempt, domain.FailureService, "")
	}
	if err := attempt.Succeed(chunkIDs, s.clock.Now()); err != nil {
		return attempt, err
	}
	details["chunks"] = len(chunkIDs)
	s.log.Info(logModule, "upload succeeded", details)
	return attempt, s.store.Save(ctx, attempt)
}

func (s *IngestService) Latest(ctx context.Context) (domain.Attempt, error) {
	return s.store.Latest(ctx)
}

// Ready reports whether the most recent attempt succeeded.
func (s *IngestService) Ready(ctx context.Context) (bool, error) {
	latest, err := s.store.Latest(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return latest.Status == domain.StatusSucceeded, nil
}

func (s *IngestService) fail(ctx context.Context, attempt domain.Attempt, kind domain.FailureKind, detail string) (domain.Attempt, error) {
	if err := attempt.Fail(kind, detail, s.clock.Now()); err != nil {
		return attempt, err
	}
	// an aborted read or upload leaves no payload behind
	attempt.EncodedPayload = ""
	return attempt, s.store.Save(ctx, attempt)
}

func (s *IngestService) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *IngestService) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}
