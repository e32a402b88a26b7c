package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"golang.org/x/sync/errgroup"
)

// RefreshRatings re-fetches OMDb ratings for movies and series whose ratings are
// older than ratings.max_age. It returns the number of updated records.
func (e *Engine) RefreshRatings(ctx context.Context) (int, error) {
	if e.db == nil {
		return 0, errors.New("database is not open")
	}
	if e.cfg.Metadata == nil || e.cfg.Metadata.OMDb == nil || e.cfg.Metadata.OMDb.APIKey == "" {
		return 0, fmt.Errorf("%w: omdb", metadata.ErrMissingAPIKey)
	}
	cutoff := time.Now().Add(-e.cfg.Ratings.MaxAge)

	movies, err := refreshKind(ctx, e, e.db.Movies(), cutoff, func(m *database.Movie) (*string, **time.Time) {
		return m.IMDbID, &m.RatingsUpdatedAt
	})
	if err != nil {
		return movies, err
	}
	series, err := refreshKind(ctx, e, e.db.Series(), cutoff, func(s *database.Series) (*string, **time.Time) {
		return s.IMDbID, &s.RatingsUpdatedAt
	})

	log.Info("Ratings refreshed", "movies", movies, "series", series)
	return movies + series, err
}

// ratingFields exposes the IMDb id and the refresh timestamp of a record.
type ratingFields[PT any] func(PT) (imdbID *string, updatedAt **time.Time)

func refreshKind[T any, PT database.Recorder[T]](
	ctx context.Context,
	e *Engine,
	repo *database.Repository[T, PT],
	cutoff time.Time,
	fields ratingFields[PT],
) (int, error) {
	recs, err := repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	omdb := e.metadata.OMDb()
	limit := e.cfg.Ratings.Concurrency
	if limit < 1 {
		limit = 1
	}

	var (
		g       errgroup.Group
		updated atomic.Int32
	)
	g.SetLimit(limit)

	for _, rec := range recs {
		imdbID, updatedAt := fields(rec)
		if imdbID == nil || *imdbID == "" {
			continue
		}
		if *updatedAt != nil && (*updatedAt).After(cutoff) {
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r, err := omdb.Ratings(ctx, *imdbID)
			if err != nil {
				if !errors.Is(err, metadata.ErrNoData) {
					log.Warn("failed to refresh ratings", "kind", rec.Kind(), "id", rec.GetID(), "imdb_id", *imdbID, "error", err)
				}
				return nil
			}
			r.ApplyTo(rec)
			now := time.Now()
			*updatedAt = &now
			if _, err := repo.Update(ctx, rec); err != nil {
				log.Warn("failed to store refreshed ratings", "kind", rec.Kind(), "id", rec.GetID(), "error", err)
				return nil
			}
			updated.Add(1)
			return nil
		})
	}

	err = g.Wait()
	return int(updated.Load()), err
}
