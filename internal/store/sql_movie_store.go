// catalog-service/internal/store/sql_movie_store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"catalog-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const movieColumns = `id, title, description, category, quality, size, download_link, poster, views, downloads, created_at, updated_at`

// SQLMovieStore implements MovieStore on PostgreSQL or SQLite through sqlx.
// Queries are written with '?' and rebound for the connected driver.
type SQLMovieStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLMovieStore wraps an open connection; the schema must already exist (see Migrate).
func NewSQLMovieStore(db *sqlx.DB, logger *slog.Logger) (*SQLMovieStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &SQLMovieStore{db: db, logger: logger}, nil
}

// Create inserts a new movie with a fresh UUID.
func (s *SQLMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	query := `INSERT INTO movies (` + movieColumns + `)
              VALUES (:id, :title, :description, :category, :quality, :size, :download_link, :poster, :views, :downloads, :created_at, :updated_at)`

	movie.ID = uuid.NewString()
	movie.CreatedAt = time.Now().UTC()
	movie.UpdatedAt = movie.CreatedAt

	s.logger.DebugContext(ctx, "Executing Create movie query", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	if _, err := s.db.NamedExecContext(ctx, query, movie); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create movie in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create movie: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie created successfully in DB", slog.String("movieID", movie.ID))
	return nil
}

// GetByID finds a movie by its id.
func (s *SQLMovieStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, key)
}

func (s *SQLMovieStore) get(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Movie, error) {
	query := s.db.Rebind(`SELECT ` + movieColumns + ` FROM movies WHERE id = ?`)
	var movie domain.Movie
	if err := sqlx.GetContext(ctx, q, &movie, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get movie by ID from DB", slog.String("movieID", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get movie by ID: %w", err)
	}
	return &movie, nil
}

// Update rewrites the editable columns and reloads the row into movie.
func (s *SQLMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	key, err := parseID(movie.ID)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`UPDATE movies
              SET title = ?, description = ?, category = ?, quality = ?, size = ?, download_link = ?, poster = ?, updated_at = ?
              WHERE id = ?`)

	s.logger.DebugContext(ctx, "Executing Update movie query", slog.String("movieID", key))
	result, err := s.db.ExecContext(ctx, query,
		movie.Title, movie.Description, movie.Category, movie.Quality, movie.Size,
		movie.DownloadLink, movie.Poster, time.Now().UTC(), key,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update movie in DB", slog.String("movieID", key), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	stored, err := s.get(ctx, s.db, key)
	if err != nil {
		return err
	}
	*movie = *stored
	return nil
}

// Delete removes the row permanently.
func (s *SQLMovieStore) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM movies WHERE id = ?`), key)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie from DB", slog.String("movieID", key), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Movie deleted from DB", slog.String("movieID", key))
	return nil
}

// List runs the count and the windowed select with the same filter.
func (s *SQLMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	where, args := buildListWhere(params)

	var total int
	countQuery := s.db.Rebind(`SELECT COUNT(*) FROM movies` + where)
	s.logger.DebugContext(ctx, "Executing List movies count query", slog.String("query", countQuery), slog.Any("args", args))
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count movies in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}

	order, windowArgs := buildListOrder(params)
	selectQuery := s.db.Rebind(`SELECT ` + movieColumns + ` FROM movies` + where + order)
	selectArgs := append(append([]any{}, args...), windowArgs...)

	movies := []*domain.Movie{}
	s.logger.DebugContext(ctx, "Executing List movies select query", slog.String("query", selectQuery), slog.Any("args", selectArgs))
	if err := s.db.SelectContext(ctx, &movies, selectQuery, selectArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list movies from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, total, nil
}

func (s *SQLMovieStore) IncrementViews(ctx context.Context, id string) (*domain.Movie, error) {
	return s.increment(ctx, id, "views")
}

func (s *SQLMovieStore) IncrementDownloads(ctx context.Context, id string) (*domain.Movie, error) {
	return s.increment(ctx, id, "downloads")
}

// increment bumps a counter column in one UPDATE and reads the row back in the
// same transaction, so the returned value is the one this call produced.
func (s *SQLMovieStore) increment(ctx context.Context, id, column string) (*domain.Movie, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin %s increment: %w", column, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	result, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE movies SET `+column+` = `+column+` + 1 WHERE id = ?`), key)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to increment movie counter", slog.String("movieID", key), slog.String("column", column), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to increment %s: %w", column, err)
	}
	if err := expectOneRow(result); err != nil {
		return nil, err
	}
	movie, err := s.get(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s increment: %w", column, err)
	}
	return movie, nil
}

// Stats aggregates totals and per-category / per-quality counts.
func (s *SQLMovieStore) Stats(ctx context.Context) (*domain.MovieStats, error) {
	stats := &domain.MovieStats{}
	if err := s.db.GetContext(ctx, &stats.TotalMovies, `SELECT COUNT(*) FROM movies`); err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}

	stats.CategoryStats = []domain.CountStat{}
	if err := s.db.SelectContext(ctx, &stats.CategoryStats,
		`SELECT category AS name, COUNT(*) AS count FROM movies GROUP BY category ORDER BY 2 DESC, 1 ASC`); err != nil {
		return nil, fmt.Errorf("failed to group movies by category: %w", err)
	}
	stats.QualityStats = []domain.CountStat{}
	if err := s.db.SelectContext(ctx, &stats.QualityStats,
		`SELECT quality AS name, COUNT(*) AS count FROM movies GROUP BY quality ORDER BY 2 DESC, 1 ASC`); err != nil {
		return nil, fmt.Errorf("failed to group movies by quality: %w", err)
	}

	stats.TotalCategories = len(stats.CategoryStats)
	stats.TotalQualities = len(stats.QualityStats)
	return stats, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}
