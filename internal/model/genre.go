package model

import "strings"

// DefaultGenres is the genre enumeration used when MOVIE_GENRES is unset.
var DefaultGenres = []string{
	"Action",
	"Adventure",
	"Comedy",
	"Crime",
	"Drama",
	"Fantasy",
	"Horror",
	"Romance",
	"Sci-Fi",
	"Thriller",
}

// GenreSet is a closed enumeration of genre names.  Lookups are
// case-insensitive and return the canonical spelling.
type GenreSet struct {
	names  []string
	byFold map[string]string
}

// NewGenreSet builds a set from names.  Blank names are skipped and later
// duplicates (case-insensitively) are ignored.
func NewGenreSet(names []string) GenreSet {
	s := GenreSet{byFold: make(map[string]string, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		k := strings.ToLower(n)
		if _, dup := s.byFold[k]; dup {
			continue
		}
		s.byFold[k] = n
		s.names = append(s.names, n)
	}
	return s
}

// Canonical returns the canonical spelling of name and whether it belongs
// to the set.
func (s GenreSet) Canonical(name string) (string, bool) {
	v, ok := s.byFold[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// Names lists the genres in configuration order.
func (s GenreSet) Names() []string {
	return cloneStrings(s.names)
}
