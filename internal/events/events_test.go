package events

import (
	"context"
	"encoding/json"
	"testing"

	"catalog-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMovie() *domain.Movie {
	return &domain.Movie{
		ID:        "0b7f9a56-8a1c-4a8e-9d0e-5f1f3f8c2a11",
		Title:     "Alien",
		Category:  domain.CategoryHorror,
		Quality:   domain.Quality4K,
		Downloads: 7,
	}
}

func TestNewMovieEvent(t *testing.T) {
	created := NewMovieEvent(MovieCreated, testMovie())
	assert.Equal(t, "movie.created", created.Type)
	assert.Equal(t, "Alien", created.Title)
	assert.Zero(t, created.Downloads)
	assert.False(t, created.OccurredAt.IsZero())

	downloaded := NewMovieEvent(MovieDownloaded, testMovie())
	assert.Equal(t, int64(7), downloaded.Downloads)

	deleted := NewMovieEvent(MovieDeleted, testMovie())
	assert.Equal(t, testMovie().ID, deleted.MovieID)
	assert.Empty(t, deleted.Title)
}

func TestMovieEvent_JSONShape(t *testing.T) {
	raw, err := json.Marshal(NewMovieEvent(MovieDeleted, testMovie()))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "movie.deleted", body["type"])
	assert.Equal(t, testMovie().ID, body["movieId"])
	assert.NotContains(t, body, "title")
	assert.Contains(t, body, "occurredAt")
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	assert.NoError(t, p.Publish(context.Background(), NewMovieEvent(MovieCreated, testMovie())))
}
