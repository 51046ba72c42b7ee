// catalog-service/internal/seed/seed.go
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
	"catalog-service/pkg/auth"
)

//go:embed sample_movies.json
var sampleMovies []byte

// EnsureAdmin creates the admin account unless one with that email exists.
// An existing account is promoted and reactivated but keeps its password.
func EnsureAdmin(ctx context.Context, users store.UserStore, email, password string, logger *slog.Logger) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("admin email and password are required")
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin && existing.IsActive {
			logger.InfoContext(ctx, "Admin account already present", slog.String("email", email))
			return existing, nil
		}
		existing.Role = domain.RoleAdmin
		existing.IsActive = true
		if err := users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to promote %s: %w", email, err)
		}
		logger.InfoContext(ctx, "Existing account promoted to admin", slog.String("email", email))
		return existing, nil
	case !errors.Is(err, store.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &domain.User{Email: email, PasswordHash: hash, Role: domain.RoleAdmin, IsActive: true}
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin %s: %w", email, err)
	}
	logger.InfoContext(ctx, "Admin account created", slog.String("email", email), slog.String("userID", admin.ID))
	return admin, nil
}

// SampleMovies decodes the embedded sample catalogue.
func SampleMovies() ([]domain.MovieRequest, error) {
	var reqs []domain.MovieRequest
	if err := json.Unmarshal(sampleMovies, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode sample movies: %w", err)
	}
	return reqs, nil
}

// Movies validates and inserts every request. Nothing is inserted if any
// request is invalid.
func Movies(ctx context.Context, movies store.MovieStore, v *domain.Validator, reqs []domain.MovieRequest, logger *slog.Logger) (int, error) {
	accepted := make([]domain.MovieRequest, 0, len(reqs))
	for i, req := range reqs {
		req, err := v.Movie(ctx, req)
		if err != nil {
			return 0, fmt.Errorf("sample movie %d (%q): %w", i, reqs[i].Title, err)
		}
		accepted = append(accepted, req)
	}

	for _, req := range accepted {
		movie := domain.NewMovie(req)
		if err := movies.Create(ctx, movie); err != nil {
			return 0, fmt.Errorf("failed to insert %q: %w", req.Title, err)
		}
		logger.DebugContext(ctx, "Seeded movie", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	}
	logger.InfoContext(ctx, "Sample movies inserted", slog.Int("count", len(accepted)))
	return len(accepted), nil
}

// Reset removes every movie from the catalogue.
func Reset(ctx context.Context, movies store.MovieStore, logger *slog.Logger) (int, error) {
	existing, _, err := movies.List(ctx, store.MovieListParams{Page: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to list movies: %w", err)
	}
	for _, m := range existing {
		if err := movies.Delete(ctx, m.ID); err != nil && !errors.Is(err, store.ErrMovieNotFound) {
			return 0, fmt.Errorf("failed to delete %s: %w", m.ID, err)
		}
	}
	logger.InfoContext(ctx, "Catalogue cleared", slog.Int("deleted", len(existing)))
	return len(existing), nil
}
