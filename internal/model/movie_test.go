package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() Movie {
	return Movie{
		ID:       "id-1",
		Title:    "Heat",
		Year:     1995,
		Director: "Michael Mann",
		Duration: 170,
		Poster:   "https://img.example.com/heat.png",
		Genre:    []string{"Crime", "Drama"},
		Rate:     8.3,
	}
}

func TestMoviePatch_ApplyKeepsAbsentFields(t *testing.T) {
	title := "Heat (1995)"
	rate := 0.0
	p := MoviePatch{Title: &title, Rate: &rate}

	out := p.Apply(sample())

	want := sample()
	want.Title = title
	want.Rate = 0
	assert.Equal(t, want, out)
	assert.False(t, p.IsEmpty())
}

func TestMoviePatch_ApplyDoesNotAlias(t *testing.T) {
	genre := []string{"Thriller"}
	p := MoviePatch{Genre: &genre}
	orig := sample()

	out := p.Apply(orig)
	genre[0] = "Horror"
	out.Genre = append(out.Genre, "Crime")

	assert.Equal(t, []string{"Crime", "Drama"}, orig.Genre)
	assert.Equal(t, []string{"Thriller", "Crime"}, out.Genre)
}

func TestMoviePatch_Empty(t *testing.T) {
	assert.True(t, MoviePatch{}.IsEmpty())
	assert.Equal(t, sample(), MoviePatch{}.Apply(sample()))
}

func TestMovie_Check(t *testing.T) {
	assert.NoError(t, sample().Check())

	m := sample()
	m.Title = " "
	m.Genre = nil
	m.Rate = 11
	err := m.Check()
	assert.EqualError(t, err, "invalid fields: title, genre, rate")
}

func TestGenreSet(t *testing.T) {
	s := NewGenreSet([]string{"Drama", " sci-fi ", "", "DRAMA", "Comedy"})

	assert.Equal(t, []string{"Drama", "sci-fi", "Comedy"}, s.Names())

	name, ok := s.Canonical("drama")
	assert.True(t, ok)
	assert.Equal(t, "Drama", name)

	name, ok = s.Canonical("SCI-FI")
	assert.True(t, ok)
	assert.Equal(t, "sci-fi", name)

	_, ok = s.Canonical("Western")
	assert.False(t, ok)
}
