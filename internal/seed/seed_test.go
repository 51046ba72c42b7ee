package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
	"catalog-service/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	ctx := context.Background()
	users := store.NewMemoryUserStore(discardLogger())

	first, err := EnsureAdmin(ctx, users, " Admin@Example.com ", "admin123", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", first.Email)
	assert.Equal(t, domain.RoleAdmin, first.Role)

	second, err := EnsureAdmin(ctx, users, "admin@example.com", "different", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("admin123", stored.PasswordHash))
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	ctx := context.Background()
	users := store.NewMemoryUserStore(discardLogger())
	u := &domain.User{Email: "ops@example.com", PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, users.Create(ctx, u))

	admin, err := EnsureAdmin(ctx, users, "ops@example.com", "secret", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, u.ID, admin.ID)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)
	assert.True(t, stored.IsActive)
}

func TestEnsureAdmin_RequiresCredentials(t *testing.T) {
	_, err := EnsureAdmin(context.Background(), store.NewMemoryUserStore(discardLogger()), "admin@example.com", "", discardLogger())
	assert.Error(t, err)
}

func TestSampleMoviesAreValid(t *testing.T) {
	reqs, err := SampleMovies()
	require.NoError(t, err)
	require.NotEmpty(t, reqs)

	v := domain.NewValidator()
	for _, req := range reqs {
		_, err := v.Movie(context.Background(), req)
		assert.NoError(t, err, req.Title)
	}
}

func TestMoviesAndReset(t *testing.T) {
	ctx := context.Background()
	movies := store.NewMemoryMovieStore(discardLogger())
	reqs, err := SampleMovies()
	require.NoError(t, err)

	n, err := Movies(ctx, movies, domain.NewValidator(), reqs, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, len(reqs), n)

	listed, total, err := movies.List(ctx, store.MovieListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, len(reqs), total)
	for _, m := range listed {
		assert.Zero(t, m.Views)
		assert.Zero(t, m.Downloads)
	}

	deleted, err := Reset(ctx, movies, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, len(reqs), deleted)
	_, total, err = movies.List(ctx, store.MovieListParams{Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMovies_RejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	movies := store.NewMemoryMovieStore(discardLogger())
	reqs, err := SampleMovies()
	require.NoError(t, err)
	reqs[1].Category = "Documentary"

	_, err = Movies(ctx, movies, domain.NewValidator(), reqs, discardLogger())
	require.Error(t, err)
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, total, err := movies.List(ctx, store.MovieListParams{Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
}
