package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

const inceptionJSON = `{
	"title": "Inception",
	"year": 2010,
	"director": "Christopher Nolan",
	"duration": 148,
	"poster": "https://x/p.jpg",
	"genre": ["Action", "Sci-Fi"],
	"rate": 8.8
}`

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.MovieEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.MovieEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testServer struct {
	e      *echo.Echo
	repo   *repository.MovieRepo
	events *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	repo := repository.NewMovieRepo()
	events := &recordingPublisher{}
	h := NewMovieHandler(repo, validation.NewMovieValidator(model.NewGenreSet(model.DefaultGenres), validation.WithClock(clock)), events)

	e := echo.New()
	e.GET("/healthz", Health(repo))
	e.GET("/movies", h.List)
	e.POST("/movies", h.Create)
	e.GET("/movies/:id", h.Get)
	e.PATCH("/movies/:id", h.Patch)
	e.DELETE("/movies/:id", h.Delete)
	return &testServer{e: e, repo: repo, events: events}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, body string) model.Movie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/movies", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m model.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func movieJSON(title string, genre ...string) string {
	g, _ := json.Marshal(genre)
	return `{"title":"` + title + `","year":2000,"director":"D","duration":100,` +
		`"poster":"https://img.example.com/p.png","genre":` + string(g) + `}`
}

func TestMovieAPI_InceptionLifecycle(t *testing.T) {
	s := newTestServer(t)

	m := s.create(t, inceptionJSON)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Inception", m.Title)
	assert.Equal(t, 2010, m.Year)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, m.Genre)
	assert.Equal(t, 8.8, m.Rate)

	rec := s.do(t, http.MethodGet, "/movies/"+m.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, m, got)

	rec = s.do(t, http.MethodPatch, "/movies/"+m.ID, `{"rate":9.1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 9.1, got.Rate)
	assert.Equal(t, m.Title, got.Title)

	rec = s.do(t, http.MethodDelete, "/movies/"+m.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Movie deleted"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/movies/"+m.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Movie not found"}`, rec.Body.String())

	assert.Equal(t, []string{queue.MovieCreated, queue.MovieUpdated, queue.MovieDeleted}, s.events.types())
}

func TestMovieAPI_CreateInvalidNamesEveryField(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/movies", `{"title":"X"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid movie", body.Error)
	for _, f := range []string{"year", "director", "duration", "poster", "genre"} {
		assert.Contains(t, body.Fields, f)
	}
	assert.NotContains(t, body.Fields, "title")
	assert.NotContains(t, body.Fields, "rate")

	assert.Equal(t, 0, s.repo.Len(context.Background()))
	assert.Empty(t, s.events.types())
}

func TestMovieAPI_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	m := s.create(t, inceptionJSON)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPost, "/movies", `{"title":`},
		{http.MethodPost, "/movies", ``},
		{http.MethodPost, "/movies", `{} {}`},
		{http.MethodPost, "/movies", `{"title":"X"}}`},
		{http.MethodPost, "/movies", `{"title":"X"}]`},
		{http.MethodPost, "/movies", inceptionJSON + ` x`},
		{http.MethodPatch, "/movies/" + m.ID, `not json`},
	} {
		rec := s.do(t, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
		assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String(), tc.body)
	}
}

func TestMovieAPI_TrailingWhitespaceIsAccepted(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/movies", inceptionJSON+"\n\t ")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMovieAPI_UnknownGenreListsAllowed(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(inceptionJSON, `"Sci-Fi"`, `"Western"`, 1)

	rec := s.do(t, http.MethodPost, "/movies", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields        map[string]string `json:"fields"`
		AllowedGenres []string          `json:"allowed_genres"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "genre")
	assert.Equal(t, model.DefaultGenres, resp.AllowedGenres)

	rec = s.do(t, http.MethodPost, "/movies", `{"title":"X","genre":["Drama"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "allowed_genres", "only sent when the genre is at fault")
}

func TestMovieAPI_ListFilterByGenre(t *testing.T) {
	s := newTestServer(t)
	s.create(t, movieJSON("Whiplash", "Drama"))
	s.create(t, movieJSON("Alien", "Horror", "Sci-Fi"))
	s.create(t, movieJSON("Amelie", "Comedy", "Drama"))

	titles := func(target string) []string {
		rec := s.do(t, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var ms []model.Movie
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ms))
		out := []string{}
		for _, m := range ms {
			out = append(out, m.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Whiplash", "Alien", "Amelie"}, titles("/movies"))
	assert.Equal(t, []string{"Whiplash", "Amelie"}, titles("/movies?genre=drama"))
	assert.Equal(t, []string{"Whiplash", "Amelie"}, titles("/movies?genre=DRAMA"))
	assert.Equal(t, []string{}, titles("/movies?genre=Western"))
	assert.Equal(t, []string{}, titles("/movies?genre=%20drama"))

	rec := s.do(t, http.MethodGet, "/movies?genre=Western", "")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestMovieAPI_EmptyListIsArray(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodGet, "/movies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestMovieAPI_PatchValidatesBeforeLookup(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPatch, "/movies/missing", `{"year":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/movies/missing", `{"title":"New"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Movie not found"}`, rec.Body.String())
}

func TestMovieAPI_PatchRejectsIDAndKeepsRecord(t *testing.T) {
	s := newTestServer(t)
	m := s.create(t, inceptionJSON)

	rec := s.do(t, http.MethodPatch, "/movies/"+m.ID, `{"id":"other","title":"Hijack"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id"`)

	got, err := s.repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMovieAPI_EmptyPatchIsNoOp(t *testing.T) {
	s := newTestServer(t)
	m := s.create(t, inceptionJSON)

	rec := s.do(t, http.MethodPatch, "/movies/"+m.ID, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, m, got)
	assert.Equal(t, []string{queue.MovieCreated}, s.events.types(), "no update event for a no-op")
}

func TestMovieAPI_DeleteMissing(t *testing.T) {
	s := newTestServer(t)
	s.create(t, inceptionJSON)

	rec := s.do(t, http.MethodDelete, "/movies/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, s.repo.Len(context.Background()))
}

func TestMovieAPI_PublishFailureDoesNotFailWrite(t *testing.T) {
	s := newTestServer(t)
	s.events.err = errors.New("broker down")

	m := s.create(t, inceptionJSON)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 1, s.repo.Len(context.Background()))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.create(t, inceptionJSON)

	rec := s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","movies":1}`, rec.Body.String())
}

func TestNewMovieHandlerDefaultsPublisher(t *testing.T) {
	h := NewMovieHandler(repository.NewMovieRepo(), nil, nil)
	require.NotNil(t, h.Events)
	assert.NoError(t, h.Events.Publish(context.Background(), queue.MovieEvent{}))
}
