// Package handler exposes the HTTP handlers of the movie API.  Handlers
// decode the request, run validation, call the repository and map its
// errors to status codes; they hold no movie state of their own.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/service"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

const publishTimeout = 3 * time.Second

var errInvalidBody = errors.New("invalid request body")

// MovieHandler serves the /movies resource.
type MovieHandler struct {
	Repo      *repository.MovieRepo
	Validator *validation.MovieValidator
	Events    service.EventPublisher // may be nil
}

// NewMovieHandler wires a handler.  A nil publisher disables events.
func NewMovieHandler(repo *repository.MovieRepo, v *validation.MovieValidator, events service.EventPublisher) *MovieHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &MovieHandler{Repo: repo, Validator: v, Events: events}
}

// List returns every movie, narrowed by ?genre= when present.
func (h *MovieHandler) List(c echo.Context) error {
	movies := h.Repo.List(c.Request().Context())
	return c.JSON(http.StatusOK, repository.FilterByGenre(movies, c.QueryParam("genre")))
}

// Get returns one movie by id.
func (h *MovieHandler) Get(c echo.Context) error {
	m, err := h.Repo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Create validates a full movie and stores it under a new id.
func (h *MovieHandler) Create(c echo.Context) error {
	payload, err := decodeBody(c)
	if err != nil {
		return h.fail(c, err)
	}
	in, err := h.Validator.ValidateFull(payload)
	if err != nil {
		return h.fail(c, err)
	}
	m, err := h.Repo.Create(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	h.publish(queue.MovieCreated, m.ID, &m)
	return c.JSON(http.StatusCreated, m)
}

// Patch validates the present fields and merges them into the stored
// movie.  The payload is validated before the id is looked up, so an
// invalid body for an unknown id is a 400, not a 404.
func (h *MovieHandler) Patch(c echo.Context) error {
	payload, err := decodeBody(c)
	if err != nil {
		return h.fail(c, err)
	}
	patch, err := h.Validator.ValidatePartial(payload)
	if err != nil {
		return h.fail(c, err)
	}
	m, err := h.Repo.PatchByID(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return h.fail(c, err)
	}
	if !patch.IsEmpty() {
		h.publish(queue.MovieUpdated, m.ID, &m)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete removes a movie by id.
func (h *MovieHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.Repo.DeleteByID(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	h.publish(queue.MovieDeleted, id, nil)
	return c.JSON(http.StatusOK, echo.Map{"message": "Movie deleted"})
}

// fail maps an error to its response.
func (h *MovieHandler) fail(c echo.Context, err error) error {
	var verr *validation.ValidationError
	switch {
	case errors.Is(err, repository.ErrMovieNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Movie not found"})
	case errors.As(err, &verr):
		body := echo.Map{"error": "invalid movie", "fields": verr.Fields}
		if verr.Has("genre") {
			body["allowed_genres"] = h.Validator.Genres()
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, errInvalidBody):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errInvalidBody.Error()})
	default:
		slog.Error("movie request failed",
			"method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// publish emits an event after a successful write.  Failures are logged
// and never change the response.
func (h *MovieHandler) publish(typ, id string, m *model.Movie) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.Events.Publish(ctx, queue.NewMovieEvent(typ, id, m)); err != nil {
		slog.Warn("movie event not published", "type", typ, "movie_id", id, "error", err)
	}
}

// decodeBody reads exactly one JSON value.  Numbers stay json.Number so
// the validator can tell 2010 from 2010.5 without float rounding.
func decodeBody(c echo.Context) (any, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, errInvalidBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errInvalidBody
	}
	return payload, nil
}
