package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/scheduler"
)

const (
	JobUpload      = "upload"
	JobRatings     = "refresh_ratings"
	JobPruneImages = "prune_images"

	pruneImagesSchedule = "0 3 * * *" // daily at 03:00
)

// setupJobs registers the periodic jobs that apply to the current configuration.
func (e *Engine) setupJobs() error {
	if e.online && e.cfg.Sync.UploadSchedule != "" {
		if err := e.scheduler.Add(scheduler.Job{
			ID:       JobUpload,
			Name:     "Upload database",
			Schedule: e.cfg.Sync.UploadSchedule,
			Func: func(ctx context.Context) error {
				_, err := e.UploadNow(ctx, false)
				return err
			},
		}); err != nil {
			return fmt.Errorf("failed to add upload job: %w", err)
		}
	}

	if e.cfg.Ratings != nil && e.cfg.Ratings.Enabled {
		if err := e.scheduler.Add(scheduler.Job{
			ID:       JobRatings,
			Name:     "Refresh IMDb ratings",
			Schedule: e.cfg.Ratings.Schedule,
			Func: func(ctx context.Context) error {
				_, err := e.RefreshRatings(ctx)
				return err
			},
		}); err != nil {
			return fmt.Errorf("failed to add ratings job: %w", err)
		}
	}

	if err := e.scheduler.Add(scheduler.Job{
		ID:       JobPruneImages,
		Name:     "Prune poster cache",
		Schedule: pruneImagesSchedule,
		Func: func(context.Context) error {
			_, err := e.images.Prune(e.cfg.Images.MaxAge)
			return err
		},
	}); err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	log.Debug("Scheduled jobs configured", "jobs", len(e.scheduler.Jobs()))
	return nil
}
