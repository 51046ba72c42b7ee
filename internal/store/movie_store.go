// catalog-service/internal/store/movie_store.go
package store

import (
	"context"
	"errors"

	"catalog-service/internal/domain"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
	// ErrInvalidMovieID means the id is not in the shape the backend assigns,
	// which is a malformed request rather than a missing record.
	ErrInvalidMovieID = errors.New("invalid movie id")
)

// MovieStore is the record store for movies. Implementations assign ids and
// timestamps and never accept client-supplied counters through Update.
type MovieStore interface {
	// Create assigns a new id and timestamps and persists m, counters included.
	Create(ctx context.Context, m *domain.Movie) error
	GetByID(ctx context.Context, id string) (*domain.Movie, error)
	// Update replaces the editable fields of the record with m.ID and refreshes
	// m with the stored state (counters, timestamps).
	Update(ctx context.Context, m *domain.Movie) error
	Delete(ctx context.Context, id string) error
	// List returns the window of matches and the total match count.
	List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error)
	// IncrementViews atomically adds one view and returns the updated record.
	IncrementViews(ctx context.Context, id string) (*domain.Movie, error)
	// IncrementDownloads atomically adds one download and returns the updated record.
	IncrementDownloads(ctx context.Context, id string) (*domain.Movie, error)
	Stats(ctx context.Context) (*domain.MovieStats, error)
}
