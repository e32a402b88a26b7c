package metadata

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// SearchAll searches TMDB movies and MyAnimeList anime movies at the same time.
// A failing provider is skipped as long as the other one answers.
func (s *Service) SearchAll(ctx context.Context, query string) ([]SearchResult, error) {
	var (
		g               errgroup.Group
		tmdbRes, malRes []SearchResult
		tmdbErr, malErr error
	)

	g.Go(func() error {
		tmdbRes, tmdbErr = s.tmdb.SearchMovies(ctx, query)
		return nil
	})
	g.Go(func() error {
		malRes, malErr = s.mal.SearchAnimeMovies(ctx, query)
		return nil
	})
	_ = g.Wait()

	switch {
	case tmdbErr != nil && malErr != nil:
		return nil, errors.Join(tmdbErr, malErr)
	case tmdbErr != nil:
		log.Warn("tmdb search failed", "query", query, "error", tmdbErr)
	case malErr != nil && !errors.Is(malErr, ErrMissingAPIKey):
		log.Warn("mal search failed", "query", query, "error", malErr)
	}

	results := make([]SearchResult, 0, len(tmdbRes)+len(malRes))
	results = append(results, tmdbRes...)
	results = append(results, malRes...)
	return results, nil
}
