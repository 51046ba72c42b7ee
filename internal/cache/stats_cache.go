// catalog-service/internal/cache/stats_cache.go
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
)

const statsKey = "catalog:movies:stats"

// Backend is the subset of RedisClient the stats cache needs.
type Backend interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedMovieStore serves Stats from the cache and drops the cached report
// whenever a movie is created, updated or deleted. Counter increments do not
// change the report. Cache failures are logged and fall through to the store.
type CachedMovieStore struct {
	store.MovieStore
	cache  Backend
	ttl    time.Duration
	logger *slog.Logger

	// mu orders cache fills against invalidations. generation counts writes,
	// so a report read before a write is never stored after it.
	mu         sync.Mutex
	generation uint64
}

func NewCachedMovieStore(inner store.MovieStore, cache Backend, ttl time.Duration, logger *slog.Logger) *CachedMovieStore {
	return &CachedMovieStore{MovieStore: inner, cache: cache, ttl: ttl, logger: logger}
}

func (s *CachedMovieStore) Stats(ctx context.Context) (*domain.MovieStats, error) {
	var cached domain.MovieStats
	err := s.cache.Get(ctx, statsKey, &cached)
	if err == nil {
		s.logger.DebugContext(ctx, "Stats served from cache")
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Failed to read stats from cache", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	stats, err := s.MovieStore.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, generation, stats)
	return stats, nil
}

func (s *CachedMovieStore) fill(ctx context.Context, generation uint64, stats *domain.MovieStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		s.logger.DebugContext(ctx, "Skipping stale stats cache fill")
		return
	}
	if err := s.cache.Set(ctx, statsKey, stats, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "Failed to write stats to cache", slog.String("error", err.Error()))
	}
}

func (s *CachedMovieStore) Create(ctx context.Context, m *domain.Movie) error {
	if err := s.MovieStore.Create(ctx, m); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedMovieStore) Update(ctx context.Context, m *domain.Movie) error {
	if err := s.MovieStore.Update(ctx, m); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedMovieStore) Delete(ctx context.Context, id string) error {
	if err := s.MovieStore.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedMovieStore) invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if err := s.cache.Delete(ctx, statsKey); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate stats cache", slog.String("error", err.Error()))
	}
}
