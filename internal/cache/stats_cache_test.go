package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend mimics RedisClient's JSON round trip.
type memoryBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	failGet bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (b *memoryBackend) Set(ctx context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = raw
	return nil
}

func (b *memoryBackend) Get(ctx context.Context, key string, dest any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.failGet {
		return errors.New("connection refused")
	}
	raw, ok := b.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (b *memoryBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

func (b *memoryBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

func newCachedStore(t *testing.T) (*CachedMovieStore, *memoryBackend) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := newMemoryBackend()
	return NewCachedMovieStore(store.NewMemoryMovieStore(logger), backend, time.Minute, logger), backend
}

func newMovie(category domain.Category) *domain.Movie {
	return domain.NewMovie(domain.MovieRequest{
		Title:        "Title",
		Description:  "Description",
		Category:     category,
		Quality:      domain.QualityHD,
		Size:         "700 MB",
		DownloadLink: "https://files.example.com/a",
		Poster:       "https://img.example.com/a.jpg",
	})
}

func TestCachedMovieStore_StatsCachedUntilWrite(t *testing.T) {
	s, backend := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newMovie(domain.CategoryDrama)))
	assert.False(t, backend.has(statsKey))

	first, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalMovies)
	assert.True(t, backend.has(statsKey))

	cached, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	m := newMovie(domain.CategoryHorror)
	require.NoError(t, s.Create(ctx, m))
	assert.False(t, backend.has(statsKey), "create must invalidate")

	fresh, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.TotalMovies)
	assert.Equal(t, 2, fresh.TotalCategories)

	m.Category = domain.CategoryDrama
	require.NoError(t, s.Update(ctx, m))
	assert.False(t, backend.has(statsKey), "update must invalidate")

	_, err = s.Stats(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, m.ID))
	assert.False(t, backend.has(statsKey), "delete must invalidate")
}

func TestCachedMovieStore_CountersDoNotInvalidate(t *testing.T) {
	s, backend := newCachedStore(t)
	ctx := context.Background()

	m := newMovie(domain.CategoryAction)
	require.NoError(t, s.Create(ctx, m))
	_, err := s.Stats(ctx)
	require.NoError(t, err)

	viewed, err := s.IncrementViews(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewed.Views)
	assert.True(t, backend.has(statsKey))
}

func TestCachedMovieStore_FailedWriteKeepsCache(t *testing.T) {
	s, backend := newCachedStore(t)
	ctx := context.Background()

	_, err := s.Stats(ctx)
	require.NoError(t, err)

	err = s.Delete(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrInvalidMovieID)
	assert.True(t, backend.has(statsKey))
}

func TestCachedMovieStore_BackendErrorFallsThrough(t *testing.T) {
	s, backend := newCachedStore(t)
	backend.failGet = true
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newMovie(domain.CategoryComedy)))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMovies)
}

// racingStore runs a write in the middle of the first Stats call, after the
// report has been read but before it is returned.
type racingStore struct {
	store.MovieStore
	once    sync.Once
	onStats func()
}

func (r *racingStore) Stats(ctx context.Context) (*domain.MovieStats, error) {
	stats, err := r.MovieStore.Stats(ctx)
	r.once.Do(r.onStats)
	return stats, err
}

func TestCachedMovieStore_WriteDuringMissIsNotOverwritten(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := newMemoryBackend()
	inner := &racingStore{MovieStore: store.NewMemoryMovieStore(logger)}
	s := NewCachedMovieStore(inner, backend, time.Minute, logger)
	ctx := context.Background()

	inner.onStats = func() {
		require.NoError(t, s.Create(ctx, newMovie(domain.CategoryHorror)))
	}

	stale, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stale.TotalMovies)
	assert.False(t, backend.has(statsKey), "report read before the write must not be cached")

	fresh, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.TotalMovies)
	assert.True(t, backend.has(statsKey))
}
