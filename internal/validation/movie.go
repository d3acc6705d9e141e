package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieValidator validates movie payloads.  It holds the configured genre
// enumeration and the clock used for the upper bound of the release year.
// A MovieValidator is immutable and safe for concurrent use.
type MovieValidator struct {
	genres model.GenreSet
	now    func() time.Time
}

// Option customizes a MovieValidator.
type Option func(*MovieValidator)

// WithClock replaces time.Now, which tests use to pin the year bound.
func WithClock(now func() time.Time) Option {
	return func(v *MovieValidator) { v.now = now }
}

// NewMovieValidator returns a validator accepting the given genres.
func NewMovieValidator(genres model.GenreSet, opts ...Option) *MovieValidator {
	v := &MovieValidator{genres: genres, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Genres returns the accepted genre names.
func (v *MovieValidator) Genres() []string { return v.genres.Names() }

// MaxYear is the latest release year accepted right now.
func (v *MovieValidator) MaxYear() int { return v.now().Year() + model.YearAhead }

// fieldRule describes one movie field: whether creation requires it and how
// a raw JSON value is turned into its normalized Go value.  parse returns
// either the value or a non-empty violation message.
type fieldRule struct {
	field    string
	required bool
	parse    func(v *MovieValidator, raw any) (any, string)
}

// movieRules is the single schema of a movie.  The id field has no rule:
// identifiers are generated by the repository.
var movieRules = []fieldRule{
	{field: "title", required: true, parse: parseText},
	{field: "year", required: true, parse: parseYear},
	{field: "director", required: true, parse: parseText},
	{field: "duration", required: true, parse: parseDuration},
	{field: "poster", required: true, parse: parsePoster},
	{field: "genre", required: true, parse: parseGenre},
	{field: "rate", required: false, parse: parseRate},
}

// ValidateFull checks a creation payload.  Every required field must be
// present and valid; on success the normalized input is returned with Rate
// defaulted to zero when absent.  On failure the returned error is a
// *ValidationError naming every violating field.
func (v *MovieValidator) ValidateFull(payload any) (model.MovieInput, error) {
	values, verr := v.validate(payload, true)
	if !verr.empty() {
		return model.MovieInput{}, verr
	}
	in := model.MovieInput{
		Title:    values["title"].(string),
		Year:     values["year"].(int),
		Director: values["director"].(string),
		Duration: values["duration"].(int),
		Poster:   values["poster"].(string),
		Genre:    values["genre"].([]string),
	}
	if r, ok := values["rate"]; ok {
		in.Rate = r.(float64)
	}
	return in, nil
}

// ValidatePartial checks an update payload.  No field is required and an
// empty object is a valid no-op; fields that are present follow exactly
// the same rules as in ValidateFull.  Unknown fields are rejected.
func (v *MovieValidator) ValidatePartial(payload any) (model.MoviePatch, error) {
	values, verr := v.validate(payload, false)
	if !verr.empty() {
		return model.MoviePatch{}, verr
	}
	var p model.MoviePatch
	for field, val := range values {
		switch field {
		case "title":
			s := val.(string)
			p.Title = &s
		case "year":
			n := val.(int)
			p.Year = &n
		case "director":
			s := val.(string)
			p.Director = &s
		case "duration":
			n := val.(int)
			p.Duration = &n
		case "poster":
			s := val.(string)
			p.Poster = &s
		case "genre":
			g := val.([]string)
			p.Genre = &g
		case "rate":
			f := val.(float64)
			p.Rate = &f
		}
	}
	return p, nil
}

func (v *MovieValidator) validate(payload any, full bool) (map[string]any, *ValidationError) {
	verr := &ValidationError{}
	obj, ok := payload.(map[string]any)
	if !ok {
		verr.add(PayloadKey, "must be a JSON object")
		return nil, verr
	}

	known := make(map[string]bool, len(movieRules))
	values := make(map[string]any, len(obj))
	for _, r := range movieRules {
		known[r.field] = true
		raw, present := obj[r.field]
		if !present {
			if full && r.required {
				verr.add(r.field, "is required")
			}
			continue
		}
		val, msg := r.parse(v, raw)
		if msg != "" {
			verr.add(r.field, msg)
			continue
		}
		values[r.field] = val
	}

	for k := range obj {
		switch {
		case k == "id":
			verr.add(k, "is server generated")
		case !known[k]:
			verr.add(k, "unknown field")
		}
	}
	return values, verr
}

func parseText(_ *MovieValidator, raw any) (any, string) {
	s, ok := raw.(string)
	if !ok {
		return nil, "must be a string"
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "must not be empty"
	}
	return s, ""
}

func parseYear(v *MovieValidator, raw any) (any, string) {
	n, msg := integer(raw)
	if msg != "" {
		return nil, msg
	}
	maxYear := v.MaxYear()
	if n < model.MinYear || n > maxYear {
		return nil, fmt.Sprintf("must be between %d and %d", model.MinYear, maxYear)
	}
	return n, ""
}

func parseDuration(_ *MovieValidator, raw any) (any, string) {
	n, msg := integer(raw)
	if msg != "" {
		return nil, msg
	}
	if n <= 0 {
		return nil, "must be a positive integer"
	}
	return n, ""
}

func parsePoster(_ *MovieValidator, raw any) (any, string) {
	s, ok := raw.(string)
	if !ok {
		return nil, "must be a string"
	}
	s = strings.TrimSpace(s)
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "must be a valid URL"
	}
	return s, ""
}

func parseGenre(v *MovieValidator, raw any) (any, string) {
	var items []any
	switch t := raw.(type) {
	case []any:
		items = t
	case []string:
		items = make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
	default:
		return nil, "must be an array of genres"
	}
	if len(items) == 0 {
		return nil, "must contain at least one genre"
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, "must contain only strings"
		}
		name, ok := v.genres.Canonical(s)
		if !ok {
			return nil, fmt.Sprintf("unknown genre %q", s)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, ""
}

func parseRate(_ *MovieValidator, raw any) (any, string) {
	f, ok := number(raw)
	if !ok {
		return nil, "must be a number"
	}
	if f < model.MinRate || f > model.MaxRate {
		return nil, fmt.Sprintf("must be between %g and %g", model.MinRate, model.MaxRate)
	}
	return f, ""
}

// number accepts the numeric shapes a decoded payload may hold: json.Number
// when the body was decoded with UseNumber, float64 from a plain decode,
// and Go integers when the payload was built in code.
func number(raw any) (float64, bool) {
	switch t := raw.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func integer(raw any) (int, string) {
	f, ok := number(raw)
	if !ok {
		return 0, "must be a number"
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, "must be an integer"
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, "is out of range"
	}
	return int(f), ""
}
