// catalog-service/internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"catalog-service/internal/domain"
	"catalog-service/internal/events"
	"catalog-service/internal/store"

	"github.com/gorilla/mux"
)

// MovieHandler serves the /api/movies routes.
type MovieHandler struct {
	responder
	store     store.MovieStore
	validator *domain.Validator
	events    events.Publisher
	metrics   *Metrics
}

// NewMovieHandler wires the movie routes. publisher and metrics may be nil.
func NewMovieHandler(s store.MovieStore, l *slog.Logger, v *domain.Validator, publisher events.Publisher, metrics *Metrics) *MovieHandler {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &MovieHandler{
		responder: responder{logger: l},
		store:     s,
		validator: v,
		events:    publisher,
		metrics:   metrics,
	}
}

// respondStoreError maps store failures onto the envelope. Internal details
// only reach the log.
func (h *MovieHandler) respondStoreError(w http.ResponseWriter, r *http.Request, err error, failMessage string) {
	switch {
	case errors.Is(err, store.ErrMovieNotFound):
		h.respondError(w, r, http.StatusNotFound, "Movie not found")
	case errors.Is(err, store.ErrInvalidMovieID):
		h.respondError(w, r, http.StatusBadRequest, "Invalid movie ID")
	default:
		h.logger.ErrorContext(r.Context(), failMessage, slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, failMessage)
	}
}

func (h *MovieHandler) publish(ctx context.Context, eventType string, m *domain.Movie) {
	if err := h.events.Publish(ctx, events.NewMovieEvent(eventType, m)); err != nil {
		h.logger.WarnContext(ctx, "Failed to publish catalog event", slog.String("event", eventType), slog.String("movieID", m.ID), slog.String("error", err.Error()))
	}
}

// ListMovies handles GET /api/movies.
func (h *MovieHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := store.ParseListQuery(r.URL.Query())
	h.logger.InfoContext(ctx, "ListMovies endpoint hit", slog.String("query", r.URL.RawQuery))

	movies, total, err := h.store.List(ctx, params)
	if err != nil {
		h.respondStoreError(w, r, err, "Error fetching movies")
		return
	}
	if movies == nil {
		movies = []*domain.Movie{}
	}

	h.logger.InfoContext(ctx, "Movies list retrieved successfully", slog.Int("count_returned", len(movies)), slog.Int("total_available", total))
	h.respondJSON(w, r, http.StatusOK, Envelope{
		Success:    true,
		Data:       movies,
		Pagination: params.Pagination(total),
	})
}

// GetStats handles GET /api/movies/stats.
func (h *MovieHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err, "Error fetching statistics")
		return
	}
	h.respondSuccess(w, r, http.StatusOK, "", stats)
}

// GetMovie handles GET /api/movies/{id}. Every successful read counts as a view.
func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["id"]
	h.logger.InfoContext(ctx, "GetMovie endpoint hit", slog.String("movieID", movieID))

	movie, err := h.store.IncrementViews(ctx, movieID)
	if err != nil {
		h.respondStoreError(w, r, err, "Error fetching movie")
		return
	}
	h.metrics.observeView()
	h.respondSuccess(w, r, http.StatusOK, "", movie)
}

// CreateMovie handles POST /api/movies. The admin gate has already run.
func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "HTTP CreateMovie request received", slog.String("path", r.URL.Path))

	var req domain.MovieRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req, err := h.validator.Movie(ctx, req)
	if err != nil {
		h.respondInvalid(w, r, err)
		return
	}

	movie := domain.NewMovie(req)
	if err := h.store.Create(ctx, movie); err != nil {
		h.respondStoreError(w, r, err, "Error creating movie")
		return
	}

	h.logger.InfoContext(ctx, "Movie created", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	h.publish(ctx, events.MovieCreated, movie)
	h.respondSuccess(w, r, http.StatusCreated, "Movie created successfully", movie)
}

// UpdateMovie handles PUT /api/movies/{id} as a full replacement of the
// editable fields. Counters are kept.
func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["id"]
	h.logger.InfoContext(ctx, "HTTP UpdateMovie request received", slog.String("movieID", movieID))

	var req domain.MovieRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req, err := h.validator.Movie(ctx, req)
	if err != nil {
		h.respondInvalid(w, r, err)
		return
	}

	movie := &domain.Movie{ID: movieID}
	req.ApplyTo(movie)
	if err := h.store.Update(ctx, movie); err != nil {
		h.respondStoreError(w, r, err, "Error updating movie")
		return
	}

	h.publish(ctx, events.MovieUpdated, movie)
	h.respondSuccess(w, r, http.StatusOK, "Movie updated successfully", movie)
}

// DeleteMovie handles DELETE /api/movies/{id}.
func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["id"]
	h.logger.InfoContext(ctx, "HTTP DeleteMovie request received", slog.String("movieID", movieID))

	if err := h.store.Delete(ctx, movieID); err != nil {
		h.respondStoreError(w, r, err, "Error deleting movie")
		return
	}

	h.publish(ctx, events.MovieDeleted, &domain.Movie{ID: movieID})
	h.respondSuccess(w, r, http.StatusOK, "Movie deleted successfully", nil)
}

// TrackDownload handles POST /api/movies/{id}/download.
func (h *MovieHandler) TrackDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["id"]

	movie, err := h.store.IncrementDownloads(ctx, movieID)
	if err != nil {
		h.respondStoreError(w, r, err, "Error tracking download")
		return
	}

	h.metrics.observeDownload()
	h.publish(ctx, events.MovieDownloaded, movie)
	h.respondSuccess(w, r, http.StatusOK, "Download tracked successfully", map[string]int64{"downloads": movie.Downloads})
}
