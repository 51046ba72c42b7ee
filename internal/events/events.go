// catalog-service/internal/events/events.go
package events

import (
	"context"
	"time"

	"catalog-service/internal/domain"
)

// Routing keys on the catalog topic exchange.
const (
	MovieCreated    = "movie.created"
	MovieUpdated    = "movie.updated"
	MovieDeleted    = "movie.deleted"
	MovieDownloaded = "movie.downloaded"
)

// MovieEvent is the JSON body of every catalog message.
type MovieEvent struct {
	Type       string          `json:"type"`
	MovieID    string          `json:"movieId"`
	Title      string          `json:"title,omitempty"`
	Category   domain.Category `json:"category,omitempty"`
	Quality    domain.Quality  `json:"quality,omitempty"`
	Downloads  int64           `json:"downloads,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewMovieEvent describes a change to m. Deletions carry only the id.
func NewMovieEvent(eventType string, m *domain.Movie) MovieEvent {
	e := MovieEvent{Type: eventType, MovieID: m.ID, OccurredAt: time.Now().UTC()}
	if eventType == MovieDeleted {
		return e
	}
	e.Title = m.Title
	e.Category = m.Category
	e.Quality = m.Quality
	if eventType == MovieDownloaded {
		e.Downloads = m.Downloads
	}
	return e
}

// Publisher sends catalog events. Publishing is best effort: callers log
// failures and never fail the request because of them.
type Publisher interface {
	Publish(ctx context.Context, event MovieEvent) error
}

// Discard drops every event. It is used when AMQP_URL is unset.
type Discard struct{}

func (Discard) Publish(context.Context, MovieEvent) error { return nil }
