package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleScenario(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createMovie(t, nil)
	assert.Equal(t, int64(0), created.Views)
	assert.Equal(t, int64(0), created.Downloads)
	require.NotEmpty(t, created.ID)

	rr, env := ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var viewed domain.Movie
	env.decodeData(t, &viewed)
	assert.Equal(t, int64(1), viewed.Views)

	rr, env = ts.do(t, http.MethodPost, "/api/movies/"+created.ID+"/download", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Download tracked successfully", env.Message)
	var downloads map[string]int64
	env.decodeData(t, &downloads)
	assert.Equal(t, map[string]int64{"downloads": 1}, downloads)

	rr, env = ts.do(t, http.MethodGet, "/api/movies?category=Sci-Fi", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []domain.Movie
	env.decodeData(t, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	rr, env = ts.do(t, http.MethodDelete, "/api/movies/"+created.ID, ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Movie deleted successfully", env.Message)

	rr, env = ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Movie not found", env.Message)

	assert.Equal(t, []string{"movie.created", "movie.downloaded", "movie.deleted"}, ts.published.types())
}

func TestCreateMovie_ResponseMatchesPayload(t *testing.T) {
	ts := newTestServer(t)

	payload := validPayload()
	payload["title"] = "  Arrival  "
	payload["views"] = 500
	payload["downloads"] = 42
	payload["id"] = "client-chosen"

	rr, env := ts.do(t, http.MethodPost, "/api/movies", ts.adminToken, payload)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Movie created successfully", env.Message)

	var created domain.Movie
	env.decodeData(t, &created)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Equal(t, "Arrival", created.Title)
	assert.Equal(t, domain.CategorySciFi, created.Category)
	assert.Equal(t, domain.Quality4K, created.Quality)
	assert.Equal(t, "4.1 GB", created.Size)
	assert.Equal(t, "https://x/d", created.DownloadLink)
	assert.Equal(t, "https://x/p", created.Poster)
	assert.Zero(t, created.Views)
	assert.Zero(t, created.Downloads)
	assert.False(t, created.CreatedAt.IsZero())

	stored, err := ts.movies.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, stored.Title)
}

func TestCreateMovie_InvalidPayloadStoresNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing title", func(p map[string]any) { delete(p, "title") }, "title"},
		{"blank title", func(p map[string]any) { p["title"] = "   " }, "title"},
		{"long title", func(p map[string]any) { p["title"] = strings.Repeat("x", 201) }, "title"},
		{"missing description", func(p map[string]any) { delete(p, "description") }, "description"},
		{"unknown category", func(p map[string]any) { p["category"] = "Documentary" }, "category"},
		{"lower-case category", func(p map[string]any) { p["category"] = "sci-fi" }, "category"},
		{"unknown quality", func(p map[string]any) { p["quality"] = "8K" }, "quality"},
		{"missing size", func(p map[string]any) { delete(p, "size") }, "size"},
		{"relative link", func(p map[string]any) { p["downloadLink"] = "/files/dune" }, "downloadLink"},
		{"ftp poster", func(p map[string]any) { p["poster"] = "ftp://x/p" }, "poster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			payload := validPayload()
			tt.mutate(payload)

			rr, env := ts.do(t, http.MethodPost, "/api/movies", ts.adminToken, payload)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.False(t, env.Success)
			assert.Equal(t, "Validation errors", env.Message)
			require.NotEmpty(t, env.Errors)
			assert.Equal(t, tt.field, env.Errors[0].Field)

			_, total, err := ts.movies.List(context.Background(), store.MovieListParams{})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, ts.published.types())
		})
	}
}

func TestCreateMovie_ReportsEveryInvalidField(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodPost, "/api/movies", ts.adminToken, map[string]any{"category": "Nope"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	fields := make([]string, 0, len(env.Errors))
	for _, fe := range env.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"title", "description", "category", "quality", "size", "downloadLink", "poster"}, fields)
}

func TestCreateMovie_MalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodPost, "/api/movies", ts.adminToken, `{"title": "Dune",`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request payload", env.Message)
}

func TestGetMovie_ErrorsAreDistinct(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodGet, "/api/movies/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid movie ID", env.Message)

	rr, env = ts.do(t, http.MethodGet, "/api/movies/6f1c2a3e-9b7d-4c1e-8f2a-0d9e8c7b6a54", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Movie not found", env.Message)

	rr, _ = ts.do(t, http.MethodPost, "/api/movies/6f1c2a3e-9b7d-4c1e-8f2a-0d9e8c7b6a54/download", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	_, total, err := ts.movies.List(context.Background(), store.MovieListParams{})
	require.NoError(t, err)
	assert.Zero(t, total, "counter mutators must not create records")
}

func TestGetMovie_ConcurrentViewsAreNotLost(t *testing.T) {
	const readers = 30
	ts := newTestServer(t)
	created := ts.createMovie(t, nil)

	var wg sync.WaitGroup
	codes := make(chan int, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr, _ := ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
			codes <- rr.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	stored, err := ts.movies.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(readers), stored.Views)
}

func TestGetMovie_EachReadCountsOnce(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createMovie(t, nil)

	for want := int64(1); want <= 3; want++ {
		_, env := ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
		var m domain.Movie
		env.decodeData(t, &m)
		assert.Equal(t, want, m.Views)
	}
}

func TestListMovies_Pagination(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 23; i++ {
		title := fmt.Sprintf("Film %02d", i)
		ts.createMovie(t, func(p map[string]any) { p["title"] = title })
	}

	rr, env := ts.do(t, http.MethodGet, "/api/movies?limit=10&page=3&sort=title&order=asc", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page []domain.Movie
	env.decodeData(t, &page)
	require.Len(t, page, 3)
	assert.Equal(t, "Film 20", page[0].Title)
	assert.Equal(t, &store.Pagination{Page: 3, Limit: 10, Total: 23, Pages: 3}, env.Pagination)

	rr, env = ts.do(t, http.MethodGet, "/api/movies", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var all []domain.Movie
	env.decodeData(t, &all)
	assert.Len(t, all, 23)
	assert.Nil(t, env.Pagination)
	assert.NotContains(t, rr.Body.String(), `"pagination"`)

	rr, env = ts.do(t, http.MethodGet, "/api/movies?limit=abc&page=-2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, env.Pagination)
}

func TestListMovies_FilterMatchesPredicate(t *testing.T) {
	ts := newTestServer(t)
	ts.createMovie(t, func(p map[string]any) { p["title"], p["category"], p["quality"] = "Alien", "Horror", "4K" })
	ts.createMovie(t, func(p map[string]any) { p["title"], p["category"], p["quality"] = "Aliens", "Action", "1080p" })
	ts.createMovie(t, func(p map[string]any) {
		p["title"], p["category"] = "Heat", "Thriller"
		p["description"] = "An ALIEN-free crime epic"
	})
	ts.createMovie(t, func(p map[string]any) { p["title"], p["category"] = "Up", "Adventure" })

	queries := []store.MovieListParams{
		{},
		{Category: "Horror"},
		{Quality: "4K"},
		{Search: "alien"},
		{Search: "ALIEN", Category: "Thriller"},
		{Search: "nothing"},
		{Category: "horror"},
	}

	_, allEnv := ts.do(t, http.MethodGet, "/api/movies", "", nil)
	var all []*domain.Movie
	allEnv.decodeData(t, &all)

	for _, q := range queries {
		path := fmt.Sprintf("/api/movies?category=%s&quality=%s&search=%s", q.Category, q.Quality, q.Search)
		rr, env := ts.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var got []*domain.Movie
		env.decodeData(t, &got)

		want := map[string]bool{}
		for _, m := range all {
			if q.Matches(m) {
				want[m.ID] = true
			}
		}
		gotIDs := map[string]bool{}
		for _, m := range got {
			gotIDs[m.ID] = true
		}
		assert.Equal(t, want, gotIDs, path)
	}
}

func TestListMovies_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	rr, env := ts.do(t, http.MethodGet, "/api/movies?category=Drama", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestUpdateMovie_RoundTripKeepsCounters(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createMovie(t, nil)
	ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	ts.do(t, http.MethodPost, "/api/movies/"+created.ID+"/download", "", nil)

	update := validPayload()
	update["title"] = "Dune: Part Two"
	update["quality"] = "1080p"
	update["views"] = 0
	update["downloads"] = 0

	rr, env := ts.do(t, http.MethodPut, "/api/movies/"+created.ID, ts.adminToken, update)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Movie updated successfully", env.Message)

	_, env = ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	var got domain.Movie
	env.decodeData(t, &got)
	assert.Equal(t, "Dune: Part Two", got.Title)
	assert.Equal(t, domain.Quality1080p, got.Quality)
	assert.Equal(t, created.Description, got.Description)
	assert.Equal(t, int64(2), got.Views)
	assert.Equal(t, int64(1), got.Downloads)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestUpdateMovie_Errors(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createMovie(t, nil)

	invalid := validPayload()
	invalid["quality"] = "VHS"
	rr, env := ts.do(t, http.MethodPut, "/api/movies/"+created.ID, ts.adminToken, invalid)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Validation errors", env.Message)

	_, env = ts.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	var unchanged domain.Movie
	env.decodeData(t, &unchanged)
	assert.Equal(t, domain.Quality4K, unchanged.Quality)

	rr, _ = ts.do(t, http.MethodPut, "/api/movies/6f1c2a3e-9b7d-4c1e-8f2a-0d9e8c7b6a54", ts.adminToken, validPayload())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, env = ts.do(t, http.MethodPut, "/api/movies/123", ts.adminToken, validPayload())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid movie ID", env.Message)
}

func TestDeleteMovie_Missing(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodDelete, "/api/movies/6f1c2a3e-9b7d-4c1e-8f2a-0d9e8c7b6a54", ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Movie not found", env.Message)
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t)
	ts.createMovie(t, func(p map[string]any) { p["category"], p["quality"] = "Drama", "HD" })
	ts.createMovie(t, func(p map[string]any) { p["category"], p["quality"] = "Drama", "4K" })
	ts.createMovie(t, func(p map[string]any) { p["category"], p["quality"] = "Comedy", "HD" })

	rr, env := ts.do(t, http.MethodGet, "/api/movies/stats", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"totalMovies": 3,
		"totalCategories": 2,
		"totalQualities": 2,
		"categoryStats": [{"_id": "Drama", "count": 2}, {"_id": "Comedy", "count": 1}],
		"qualityStats": [{"_id": "HD", "count": 2}, {"_id": "4K", "count": 1}]
	}`, string(env.Data))
}

// failingStore fails every call with a driver-style error.
type failingStore struct {
	store.MovieStore
}

var errDriver = errors.New("dial tcp 10.0.0.5:5432: connection refused (password=hunter2)")

func (failingStore) List(context.Context, store.MovieListParams) ([]*domain.Movie, int, error) {
	return nil, 0, errDriver
}

func (failingStore) Create(context.Context, *domain.Movie) error { return errDriver }

func (failingStore) Stats(context.Context) (*domain.MovieStats, error) { return nil, errDriver }

func TestStoreErrorsAreOpaque(t *testing.T) {
	ts := newTestServer(t, withMovieStore(failingStore{}))

	rr, env := ts.do(t, http.MethodGet, "/api/movies", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Error fetching movies", env.Message)
	assert.NotContains(t, rr.Body.String(), "hunter2")

	rr, env = ts.do(t, http.MethodPost, "/api/movies", ts.adminToken, validPayload())
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Error creating movie", env.Message)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
	assert.Empty(t, ts.published.types())

	rr, env = ts.do(t, http.MethodGet, "/api/movies/stats", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Error fetching statistics", env.Message)
}
