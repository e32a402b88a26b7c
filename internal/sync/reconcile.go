package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/natefinch/atomic"
)

// Phase is the state of the login-time reconciliation.
type Phase string

const (
	PhasePending         Phase = "pending"
	PhaseNoLocalNoRemote Phase = "no_local_no_remote"
	PhaseReconciling     Phase = "reconciling"
	PhaseReady           Phase = "ready"
)

// Outcome tells what reconciliation did with the local file.
type Outcome string

const (
	// OutcomeFresh means an empty schema was created locally.
	OutcomeFresh Outcome = "Fresh DB"
	// OutcomeDownloaded means the remote copy replaced the missing local file.
	OutcomeDownloaded Outcome = "downloaded"
	// OutcomeLocal means the existing local file is used.
	OutcomeLocal Outcome = "local"
	// OutcomeError means the remote could not be reached and the local file is used.
	OutcomeError Outcome = "error"
)

// Result is the report of one reconciliation.
type Result struct {
	Outcome Outcome
	// Conflict is set when a local file exists and the remote copy changed since our last sync.
	Conflict bool
	Remote   *RemoteFile
	// Err is the remote failure that was fallen back from, if any.
	Err error
}

// Reconciler decides at login whether to use, download or create the local database.
type Reconciler struct {
	remote Remote
	cfg    *config.SyncConfig
	dbPath string
	initDB func(path string) error

	mu    sync.Mutex
	phase Phase
}

// NewReconciler creates a reconciler for the database file at dbPath.
func NewReconciler(remote Remote, dbPath string, cfg *config.SyncConfig) *Reconciler {
	return &Reconciler{
		remote: remote,
		cfg:    cfg,
		dbPath: dbPath,
		initDB: database.Init,
		phase:  PhasePending,
	}
}

// Phase returns the current phase.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Reconciler) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
	log.Debug("Sync phase", "phase", p)
}

// Reconcile brings the local database file into a usable state.
// Remote failures never fail reconciliation; they are reported in Result.Err.
// Only a local failure to create the schema is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	if _, err := os.Stat(r.dbPath); err == nil {
		return r.keepLocal(ctx), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Result{Outcome: OutcomeError, Err: err}, fmt.Errorf("failed to stat database: %w", err)
	}

	remote, err := r.remote.Find(ctx, r.cfg.RemoteName)
	if err != nil {
		log.Warn("Remote lookup failed, creating a fresh database", "error", err)
		return r.fresh(Result{Err: err})
	}
	if remote == nil {
		r.setPhase(PhaseNoLocalNoRemote)
		return r.fresh(Result{})
	}

	r.setPhase(PhaseReconciling)
	if err := r.download(ctx, remote); err != nil {
		log.Warn("Download failed, creating a fresh database", "error", err)
		return r.fresh(Result{Remote: remote, Err: err})
	}
	if err := r.initDB(r.dbPath); err != nil {
		return Result{Outcome: OutcomeError, Remote: remote, Err: err}, err
	}

	r.setPhase(PhaseReady)
	log.Info("Downloaded database from the cloud", "remote_id", remote.ID, "modified", remote.ModifiedTime)
	return Result{Outcome: OutcomeDownloaded, Remote: remote}, nil
}

func (r *Reconciler) keepLocal(ctx context.Context) Result {
	r.setPhase(PhaseReconciling)
	defer r.setPhase(PhaseReady)

	remote, err := r.remote.Find(ctx, r.cfg.RemoteName)
	if err != nil {
		log.Warn("Remote lookup failed, continuing with the local database", "error", err)
		return Result{Outcome: OutcomeError, Err: err}
	}

	res := Result{Outcome: OutcomeLocal, Remote: remote}
	st, err := LoadState(r.cfg.StateFile)
	if err != nil {
		log.Warn("failed to read sync state", "error", err)
	}
	if remote != nil && st.Stale(remote) {
		res.Conflict = true
		log.Warn("Remote database changed since the last sync, keeping the local copy",
			"remote_modified", remote.ModifiedTime, "last_sync", st.SyncedAt)
	}
	return res
}

func (r *Reconciler) fresh(res Result) (Result, error) {
	if err := r.initDB(r.dbPath); err != nil {
		log.Error("failed to create database", "path", r.dbPath, "error", err)
		res.Outcome = OutcomeError
		return res, err
	}
	r.setPhase(PhaseReady)
	res.Outcome = OutcomeFresh
	log.Info("Created a fresh database", "path", r.dbPath)
	return res, nil
}

// download replaces the local file with the remote copy through a temp file.
func (r *Reconciler) download(ctx context.Context, remote *RemoteFile) error {
	body, err := r.remote.Download(ctx, remote.ID)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(r.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := atomic.WriteFile(r.dbPath, body); err != nil {
		return fmt.Errorf("failed to write downloaded database: %w", err)
	}

	st := State{RemoteID: remote.ID, RemoteModified: remote.ModifiedTime, SyncedAt: time.Now()}
	if err := SaveState(r.cfg.StateFile, st); err != nil {
		log.Warn("failed to record sync state", "error", err)
	}
	return nil
}
