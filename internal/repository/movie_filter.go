package repository

import (
	"strings"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// FilterByGenre narrows records to the movies tagged with genre.  An empty
// genre means "no filter" and records is returned as is.  Matching is a
// case-insensitive comparison of the criterion, untrimmed, against each
// entry of a movie's genre list; the result keeps the input order.  A
// genre nobody has, whitespace included, yields an empty non-nil slice.
func FilterByGenre(records []model.Movie, genre string) []model.Movie {
	if genre == "" {
		return records
	}
	out := make([]model.Movie, 0, len(records))
	for _, m := range records {
		for _, g := range m.Genre {
			if strings.EqualFold(g, genre) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
