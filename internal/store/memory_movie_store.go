package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"catalog-service/internal/domain"

	"github.com/google/uuid"
)

// MemoryMovieStore keeps movies in a map guarded by a RWMutex. It backs the
// "memory" driver and the handler tests.
type MemoryMovieStore struct {
	mu     sync.RWMutex
	movies map[string]*domain.Movie
	logger *slog.Logger
	now    func() time.Time
}

func NewMemoryMovieStore(logger *slog.Logger) *MemoryMovieStore {
	return &MemoryMovieStore{
		movies: make(map[string]*domain.Movie),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// parseID normalises a UUID id or reports ErrInvalidMovieID.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidMovieID
	}
	return parsed.String(), nil
}

func (s *MemoryMovieStore) Create(ctx context.Context, m *domain.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt

	movieCopy := *m
	s.movies[m.ID] = &movieCopy
	s.logger.DebugContext(ctx, "Movie created in memory store", slog.String("movieID", m.ID))
	return nil
}

func (s *MemoryMovieStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	movie, ok := s.movies[key]
	if !ok {
		return nil, ErrMovieNotFound
	}
	movieCopy := *movie
	return &movieCopy, nil
}

func (s *MemoryMovieStore) Update(ctx context.Context, m *domain.Movie) error {
	key, err := parseID(m.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.movies[key]
	if !ok {
		return ErrMovieNotFound
	}
	domain.MovieRequest{
		Title:        m.Title,
		Description:  m.Description,
		Category:     m.Category,
		Quality:      m.Quality,
		Size:         m.Size,
		DownloadLink: m.DownloadLink,
		Poster:       m.Poster,
	}.ApplyTo(existing)
	existing.UpdatedAt = s.now()

	*m = *existing
	return nil
}

func (s *MemoryMovieStore) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[key]; !ok {
		return ErrMovieNotFound
	}
	delete(s.movies, key)
	s.logger.DebugContext(ctx, "Movie deleted from memory store", slog.String("movieID", key))
	return nil
}

func (s *MemoryMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*domain.Movie{}
	for _, movie := range s.movies {
		if params.Matches(movie) {
			movieCopy := *movie
			matched = append(matched, &movieCopy)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return params.less(matched[i], matched[j])
	})

	total := len(matched)
	if !params.Paginated() {
		return matched, total, nil
	}
	start := params.Offset()
	if start >= total {
		return []*domain.Movie{}, total, nil
	}
	end := total
	if params.Limit < total-start {
		end = start + params.Limit
	}
	return matched[start:end], total, nil
}

func (s *MemoryMovieStore) IncrementViews(ctx context.Context, id string) (*domain.Movie, error) {
	return s.increment(id, func(m *domain.Movie) { m.Views++ })
}

func (s *MemoryMovieStore) IncrementDownloads(ctx context.Context, id string) (*domain.Movie, error) {
	return s.increment(id, func(m *domain.Movie) { m.Downloads++ })
}

func (s *MemoryMovieStore) increment(id string, bump func(*domain.Movie)) (*domain.Movie, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	movie, ok := s.movies[key]
	if !ok {
		return nil, ErrMovieNotFound
	}
	bump(movie)
	movieCopy := *movie
	return &movieCopy, nil
}

func (s *MemoryMovieStore) Stats(ctx context.Context) (*domain.MovieStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make(map[string]int64)
	qualities := make(map[string]int64)
	for _, movie := range s.movies {
		categories[string(movie.Category)]++
		qualities[string(movie.Quality)]++
	}
	stats := &domain.MovieStats{
		TotalMovies:   int64(len(s.movies)),
		CategoryStats: countStats(categories),
		QualityStats:  countStats(qualities),
	}
	stats.TotalCategories = len(stats.CategoryStats)
	stats.TotalQualities = len(stats.QualityStats)
	return stats, nil
}

// countStats sorts buckets by count descending, then name ascending.
func countStats(counts map[string]int64) []domain.CountStat {
	out := make([]domain.CountStat, 0, len(counts))
	for name, count := range counts {
		out = append(out, domain.CountStat{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
