package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/cache"
)

// ResultCache stores payloads by key. *cache.Manager satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// CacheRecorder records cache lookups.
type CacheRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) RecordCacheHit(string)  {}
func (nopCacheRecorder) RecordCacheMiss(string) {}

// CacheOption configures a CachedSearcher.
type CacheOption func(*CachedSearcher)

// WithCacheRecorder sets the metrics recorder.
func WithCacheRecorder(r CacheRecorder) CacheOption {
	return func(s *CachedSearcher) {
		if r != nil {
			s.recorder = r
		}
	}
}

const cacheType = "search"

// CachedSearcher serves repeated lookups from a cache. Cache errors never
// fail a lookup; they only cost a miss.
type CachedSearcher struct {
	next     Searcher
	cache    ResultCache
	ttl      time.Duration
	recorder CacheRecorder
	logger   *zap.Logger
}

// NewCachedSearcher wraps next with cache. ttl 0 uses the cache default.
func NewCachedSearcher(next Searcher, c ResultCache, ttl time.Duration, logger *zap.Logger, opts ...CacheOption) *CachedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CachedSearcher{
		next:     next,
		cache:    c,
		ttl:      ttl,
		recorder: nopCacheRecorder{},
		logger:   logger.With(zap.String("component", "search_cache")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns a cached payload when present, otherwise delegates and
// stores a successful result.
func (s *CachedSearcher) Search(ctx context.Context, query string, filter Filter) (string, error) {
	key := CacheKey(query, filter)

	if text, err := s.cache.Get(ctx, key); err == nil {
		s.logger.Debug("search cache hit", zap.String("query", query))
		s.recorder.RecordCacheHit(cacheType)
		return text, nil
	} else if !cache.IsCacheMiss(err) {
		s.logger.Warn("search cache unavailable", zap.Error(err))
	}
	s.recorder.RecordCacheMiss(cacheType)

	text, err := s.next.Search(ctx, query, filter)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, text, s.ttl); err != nil {
		s.logger.Warn("search cache store failed", zap.Error(err))
	}
	return text, nil
}

// CacheKey derives a stable key from the query and filter.
func CacheKey(query string, filter Filter) string {
	sum := sha256.Sum256([]byte(filter.String() + "\x00" + query))
	return "search:" + hex.EncodeToString(sum[:16])
}
