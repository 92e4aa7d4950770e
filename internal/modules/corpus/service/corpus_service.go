package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"ragstream/internal/modules/corpus/domain"
	corpusout "ragstream/internal/modules/corpus/port/out"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/platform/logger"
)

const (
	logModule = "corpus"
	statusKey = "status"
)

type CorpusService struct {
	client corpusout.Client
	cache  *gocache.Cache
	log    logger.Logger
}

// NewCorpusService caches status lookups for ttl; a non-positive ttl
// disables caching.
func NewCorpusService(client corpusout.Client, ttl time.Duration, log logger.Logger) *CorpusService {
	var cache *gocache.Cache
	if ttl > 0 {
		cache = gocache.New(ttl, 2*ttl)
	}
	return &CorpusService{client: client, cache: cache, log: log}
}

// Status returns the service's vector store status and whether it came
// from the cache.
func (s *CorpusService) Status(ctx context.Context, refresh bool) (domain.Status, bool, error) {
	if s.cache != nil && !refresh {
		if cached, ok := s.cache.Get(statusKey); ok {
			return cached.(domain.Status), true, nil
		}
	}
	status, err := s.client.Status(ctx)
	if err != nil {
		s.log.Warn(logModule, "status lookup failed", map[string]any{"error": err})
		return domain.Status{}, false, err
	}
	if s.cache != nil {
		s.cache.SetDefault(statusKey, status)
	}
	return status, false, nil
}

func (s *CorpusService) Search(ctx context.Context, query string, n int) ([]domain.Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", apperrors.ErrInvalidInput)
	}
	if n == 0 {
		n = domain.DefaultSearchLimit
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: result count must be positive", apperrors.ErrInvalidInput)
	}
	passages, err := s.client.Search(ctx, query, n)
	if err != nil {
		s.log.Warn(logModule, "search failed", map[string]any{"error": err, "n": n})
		return nil, err
	}
	s.log.Debug(logModule, "search completed", map[string]any{"results": len(passages), "n": n})
	return passages, nil
}
