package engine

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/auth"
	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/scheduler"
	"github.com/mediashelf/mediashelf/internal/sync"
	"google.golang.org/api/option"
)

// ErrOffline is returned by sync operations when cloud sync is not active.
var ErrOffline = errors.New("cloud sync is not active")

// Options changes how the engine starts.
type Options struct {
	// Offline skips sign-in and reconciliation.
	Offline bool
	// Remote replaces the Google Drive remote. Sign-in is skipped when it is set.
	Remote sync.Remote
}

// Engine owns the library: it reconciles the database at startup, runs the
// maintenance jobs and uploads the database on shutdown.
type Engine struct {
	cfg  *config.Config
	opts Options

	db        *database.Client
	metadata  *metadata.Service
	metaCache *cache.MetadataCache
	images    *cache.ImageCache
	scheduler *scheduler.Scheduler

	online    bool
	remote    sync.Remote
	uploader  *sync.Uploader
	reconcile *sync.Result
	profile   *auth.Profile

	uploadMu gosync.Mutex
}

// New creates an engine. Nothing touches the network or the database until Start.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	sched, err := scheduler.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	metaCache := cache.NewMetadataCache(cfg.Cache)

	images, err := cache.NewImageCache(cfg.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		opts:      opts,
		metadata:  metadata.New(cfg.Metadata, metaCache),
		metaCache: metaCache,
		images:    images,
		scheduler: sched,
		online:    !opts.Offline && cfg.Sync != nil && cfg.Sync.Enabled,
	}, nil
}

// Start signs in, reconciles the local database with the cloud copy and opens it.
// Sign-in and sync failures fall back to local-only operation.
func (e *Engine) Start(ctx context.Context) error {
	dbPath := e.cfg.Database.Path

	if e.online {
		if err := e.connect(ctx); err != nil {
			log.Error("failed to connect to the cloud, continuing offline", "error", err)
			e.online = false
		}
	} else if e.cfg.Auth != nil && e.cfg.Auth.Google != nil && e.cfg.Auth.Google.Enabled {
		// show whoever signed in last
		if p, err := auth.NewSessionStore(e.cfg.Auth.Google.SessionFile).Load(); err == nil {
			e.profile = p
		}
	}

	if e.online {
		res, err := sync.NewReconciler(e.remote, dbPath, e.cfg.Sync).Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("failed to prepare database: %w", err)
		}
		e.reconcile = &res
		log.Info("Database reconciled", "outcome", res.Outcome, "conflict", res.Conflict)
	} else if err := database.Init(dbPath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	db, err := database.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db

	if err := e.setupJobs(); err != nil {
		return err
	}
	return nil
}

// connect signs in and prepares the remote.
func (e *Engine) connect(ctx context.Context) error {
	e.remote = e.opts.Remote
	if e.remote == nil {
		a, err := auth.New(e.cfg.Auth.Google, e.cfg.Gravatar)
		if err != nil {
			return err
		}
		tok, profile, err := a.Authenticate(ctx)
		if err != nil {
			return err
		}
		e.profile = profile

		client := a.Client(context.WithoutCancel(ctx), tok)
		drive, err := sync.NewDriveRemote(ctx, option.WithHTTPClient(client))
		if err != nil {
			return err
		}
		e.remote = drive
	}
	e.uploader = sync.NewUploader(e.remote, e.cfg.Sync)
	return nil
}

// Run starts the scheduled jobs and blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.scheduler.Start()
	<-ctx.Done()
	return nil
}

// Close stops the jobs, closes the database and uploads it when configured to.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if err := e.scheduler.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop scheduler: %w", err))
	}
	if e.db == nil {
		return errors.Join(errs...)
	}
	if err := e.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if e.online && e.cfg.Sync.UploadOnExit {
		e.uploadMu.Lock()
		_, err := e.uploader.Upload(ctx, e.cfg.Database.Path, false)
		e.uploadMu.Unlock()
		if err != nil {
			log.Error("failed to upload database on exit", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DB returns the open database. It is nil before Start.
func (e *Engine) DB() *database.Client { return e.db }

// Metadata returns the metadata providers.
func (e *Engine) Metadata() *metadata.Service { return e.metadata }

// Images returns the poster cache.
func (e *Engine) Images() *cache.ImageCache { return e.images }

// MetadataCache returns the provider response cache.
func (e *Engine) MetadataCache() *cache.MetadataCache { return e.metaCache }

// Scheduler returns the job scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.scheduler }

// Online reports whether cloud sync is active.
func (e *Engine) Online() bool { return e.online }

// Profile returns the signed-in account, if any.
func (e *Engine) Profile() *auth.Profile { return e.profile }

// Reconciliation returns the result of the startup reconciliation, if it ran.
func (e *Engine) Reconciliation() *sync.Result { return e.reconcile }
