// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// Event types published after successful writes.
const (
	MovieCreated = "movie.created"
	MovieUpdated = "movie.updated"
	MovieDeleted = "movie.deleted"
)

// MovieEvent is published after a movie is created, patched or deleted.
// Movie carries the record as it is after the write; it is nil for
// deletions, where only the ID is known to still matter.
type MovieEvent struct {
	Type       string       `json:"type"`
	MovieID    string       `json:"movie_id"`
	Movie      *model.Movie `json:"movie,omitempty"`
	OccurredAt string       `json:"occurred_at"`
}

// NewMovieEvent stamps an event with the current UTC time.
func NewMovieEvent(typ, id string, m *model.Movie) MovieEvent {
	return MovieEvent{
		Type:       typ,
		MovieID:    id,
		Movie:      m,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
