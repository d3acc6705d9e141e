// Package repository contains data access logic separated from HTTP handlers.
// This file defines the in-memory movie repository.  It is the only owner
// of the movie collection: records are created, patched and deleted
// exclusively through its methods, and callers only ever receive copies.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/utils"
)

// MovieRepo holds the movie collection for the lifetime of the process.
// The slice keeps insertion order; a single RWMutex serializes writers so
// that every lookup-then-mutate sequence runs as one critical section.
type MovieRepo struct {
	mu     sync.RWMutex
	movies []model.Movie
	newID  func() string
}

// MovieRepoOption customizes a MovieRepo at construction.
type MovieRepoOption func(*MovieRepo)

// WithIDGenerator replaces utils.NewID.  Tests use it to force collisions.
func WithIDGenerator(gen func() string) MovieRepoOption {
	return func(r *MovieRepo) { r.newID = gen }
}

// NewMovieRepo constructs an empty MovieRepo.  Each call returns an
// independent collection, so tests can use a fresh instance per case.
func NewMovieRepo(opts ...MovieRepoOption) *MovieRepo {
	r := &MovieRepo{newID: utils.NewID}
	for _, o := range opts {
		o(r)
	}
	return r
}

// List returns every movie in insertion order.
func (r *MovieRepo) List(_ context.Context) []model.Movie {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Movie, len(r.movies))
	for i, m := range r.movies {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of stored movies.
func (r *MovieRepo) Len(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.movies)
}

// GetByID returns the movie with the given ID or ErrMovieNotFound.
func (r *MovieRepo) GetByID(_ context.Context, id string) (model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return model.Movie{}, ErrMovieNotFound
	}
	return r.movies[i].Clone(), nil
}

// Create stores a new movie built from input that already passed full
// validation.  A fresh identifier is assigned and the record is appended
// after all existing ones.  The input is not validated again; only the
// whole-record invariants are checked, and a failure there is reported as
// ErrInvariantViolation.
func (r *MovieRepo) Create(_ context.Context, in model.MovieInput) (model.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for r.indexOf(id) >= 0 {
		id = r.newID()
	}
	m := model.NewMovie(id, in)
	if err := m.Check(); err != nil {
		return model.Movie{}, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	r.movies = append(r.movies, m)
	return m.Clone(), nil
}

// DeleteByID removes the movie with the given ID.  The remaining movies
// keep their relative order.  ErrMovieNotFound is returned when absent.
func (r *MovieRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrMovieNotFound
	}
	copy(r.movies[i:], r.movies[i+1:])
	r.movies[len(r.movies)-1] = model.Movie{}
	r.movies = r.movies[:len(r.movies)-1]
	return nil
}

// PatchByID merges the present fields of patch over the stored movie and
// replaces it in place, keeping its position.  Absent fields are retained.
// The patch must already have passed partial validation.  When the merged
// record would break an invariant nothing is written and the error wraps
// ErrInvariantViolation.
func (r *MovieRepo) PatchByID(_ context.Context, id string, patch model.MoviePatch) (model.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return model.Movie{}, ErrMovieNotFound
	}
	merged := patch.Apply(r.movies[i])
	if err := merged.Check(); err != nil {
		return model.Movie{}, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	r.movies[i] = merged
	return merged.Clone(), nil
}

// indexOf returns the position of id, or -1.  Callers must hold mu.
func (r *MovieRepo) indexOf(id string) int {
	for i := range r.movies {
		if r.movies[i].ID == id {
			return i
		}
	}
	return -1
}
