package model

import (
	"fmt"
	"strings"
)

// Year, duration and rate bounds shared by the validator and the
// whole-record invariant check.
const (
	MinYear   = 1900
	MinRate   = 0.0
	MaxRate   = 10.0
	YearAhead = 5 // how many years past the current one a release may be announced
)

// Movie is the only resource exposed by the service.  Every Movie held by
// the repository has passed full validation and carries a server generated
// identifier.
//
// Fields:
//  ID       – opaque UUID assigned on creation, never changed.
//  Title    – display title.
//  Year     – release year.
//  Director – director name.
//  Duration – running time in minutes.
//  Poster   – absolute URL of the poster image.
//  Genre    – ordered, non-empty list of canonical genre names.
//  Rate     – rating on a 0..10 scale.
type Movie struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Director string   `json:"director"`
	Duration int      `json:"duration"`
	Poster   string   `json:"poster"`
	Genre    []string `json:"genre"`
	Rate     float64  `json:"rate"`
}

// MovieInput is the normalized data of a movie that passed full
// validation.  It has no ID; the repository assigns one on creation.
type MovieInput struct {
	Title    string
	Year     int
	Director string
	Duration int
	Poster   string
	Genre    []string
	Rate     float64
}

// MoviePatch carries the fields of a partial update.  A nil pointer means
// the field was absent from the payload and must be left untouched; a
// non-nil pointer means it was present and already validated.
type MoviePatch struct {
	Title    *string
	Year     *int
	Director *string
	Duration *int
	Poster   *string
	Genre    *[]string
	Rate     *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p MoviePatch) IsEmpty() bool {
	return p.Title == nil && p.Year == nil && p.Director == nil && p.Duration == nil &&
		p.Poster == nil && p.Genre == nil && p.Rate == nil
}

// NewMovie builds a Movie from validated input and an identifier.
func NewMovie(id string, in MovieInput) Movie {
	return Movie{
		ID:       id,
		Title:    in.Title,
		Year:     in.Year,
		Director: in.Director,
		Duration: in.Duration,
		Poster:   in.Poster,
		Genre:    cloneStrings(in.Genre),
		Rate:     in.Rate,
	}
}

// Apply returns a copy of m with every present field of p written over it.
// The ID is never touched.
func (p MoviePatch) Apply(m Movie) Movie {
	out := m.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Year != nil {
		out.Year = *p.Year
	}
	if p.Director != nil {
		out.Director = *p.Director
	}
	if p.Duration != nil {
		out.Duration = *p.Duration
	}
	if p.Poster != nil {
		out.Poster = *p.Poster
	}
	if p.Genre != nil {
		out.Genre = cloneStrings(*p.Genre)
	}
	if p.Rate != nil {
		out.Rate = *p.Rate
	}
	return out
}

// Clone returns a deep copy so callers never share the genre slice with
// the repository.
func (m Movie) Clone() Movie {
	m.Genre = cloneStrings(m.Genre)
	return m
}

// Check verifies the whole-record invariants that must hold for every
// stored movie.  It does not know the genre enumeration or the clock; those
// are per-field rules enforced by the validator before a write.
func (m Movie) Check() error {
	var bad []string
	if strings.TrimSpace(m.Title) == "" {
		bad = append(bad, "title")
	}
	if m.Year < MinYear {
		bad = append(bad, "year")
	}
	if strings.TrimSpace(m.Director) == "" {
		bad = append(bad, "director")
	}
	if m.Duration <= 0 {
		bad = append(bad, "duration")
	}
	if strings.TrimSpace(m.Poster) == "" {
		bad = append(bad, "poster")
	}
	if len(m.Genre) == 0 {
		bad = append(bad, "genre")
	}
	if m.Rate < MinRate || m.Rate > MaxRate {
		bad = append(bad, "rate")
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid fields: %s", strings.Join(bad, ", "))
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
