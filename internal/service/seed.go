package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

// LoadSeed reads a JSON array of movies from path and stores every entry
// that passes full validation.  Any "id" in the file is dropped so stored
// movies always carry generated identifiers.  Invalid entries are logged
// and skipped; only an unreadable file or a non-array document is an error.
func LoadSeed(ctx context.Context, path string, v *validation.MovieValidator, repo *repository.MovieRepo) (loaded, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var entries []any
	if err := dec.Decode(&entries); err != nil {
		return 0, 0, fmt.Errorf("decode seed file: %w", err)
	}

	for i, raw := range entries {
		if obj, ok := raw.(map[string]any); ok {
			delete(obj, "id")
		}
		in, err := v.ValidateFull(raw)
		if err != nil {
			slog.Warn("seed: skipping invalid movie", "index", i, "error", err)
			skipped++
			continue
		}
		if _, err := repo.Create(ctx, in); err != nil {
			slog.Warn("seed: skipping movie", "index", i, "error", err)
			skipped++
			continue
		}
		loaded++
	}
	return loaded, skipped, nil
}
