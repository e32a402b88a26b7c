package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/mediashelf/mediashelf/internal/sync"
	"github.com/mergestat/timediff"
	"github.com/spf13/cobra"
)

var syncFlags struct {
	Force bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the database with Google Drive",
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the local database",
	Long: `Upload the local database to Google Drive. The upload is refused when the cloud copy
changed since the last sync on this device, unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOnlineEngine(cmd.Context(), func(eng *engine.Engine) error {
			remote, err := eng.UploadNow(cmd.Context(), syncFlags.Force)
			if errors.Is(err, sync.ErrRemoteChanged) {
				return fmt.Errorf("%w; run 'mediashelf sync pull --force' to take the cloud copy or 'mediashelf sync push --force' to overwrite it", err)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded %s (%s)\n", remote.Name, humanize.Bytes(toUint64(remote.Size)))
			return nil
		})
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local database with the cloud copy",
	Long: `Download the cloud copy of the database. An existing local database is only replaced
with --force; it is kept as a .bak file next to the database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Database.Path

		var backup string
		if _, err := os.Stat(path); err == nil {
			if !syncFlags.Force {
				return fmt.Errorf("%s already exists, use --force to replace it", path)
			}
			backup = fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
			if err := os.Rename(path, backup); err != nil {
				return fmt.Errorf("failed to back up local database: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		var outcome sync.Outcome
		err = startOnline(cmd.Context(), cfg, func(eng *engine.Engine) error {
			if r := eng.Reconciliation(); r != nil {
				outcome = r.Outcome
			}
			return nil
		})
		if err == nil && outcome == sync.OutcomeDownloaded {
			fmt.Println("Downloaded the cloud copy.")
			if backup != "" {
				fmt.Printf("The previous database was kept as %s\n", backup)
			}
			return nil
		}

		if backup != "" {
			if rerr := os.Rename(backup, path); rerr != nil {
				log.Error("failed to restore local database", "backup", backup, "error", rerr)
			}
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("nothing was downloaded (outcome: %s)", outcome)
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local and cloud state of the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOnlineEngine(cmd.Context(), func(eng *engine.Engine) error {
			st, err := eng.SyncStatus(cmd.Context())
			if err != nil {
				return err
			}
			if p := eng.Profile(); p != nil {
				fmt.Printf("Account:    %s <%s>\n", p.Name, p.Email)
			}
			if st.LocalExists {
				fmt.Printf("Local:      %s, modified %s\n", humanize.Bytes(toUint64(st.LocalSize)), timediff.TimeDiff(st.LocalModified))
			} else {
				fmt.Println("Local:      none")
			}
			if st.Remote != nil {
				fmt.Printf("Cloud:      %s, modified %s\n", humanize.Bytes(toUint64(st.Remote.Size)), timediff.TimeDiff(st.Remote.ModifiedTime))
			} else {
				fmt.Println("Cloud:      none")
			}
			if st.State.SyncedAt.IsZero() {
				fmt.Println("Last sync:  never")
			} else {
				fmt.Printf("Last sync:  %s\n", timediff.TimeDiff(st.State.SyncedAt))
			}
			if st.RemoteChanged && st.Remote != nil {
				fmt.Println("The cloud copy changed since the last sync on this device.")
			}
			return nil
		})
	},
}

func init() {
	syncPushCmd.Flags().BoolVar(&syncFlags.Force, "force", false, "Overwrite a cloud copy that changed since the last sync")
	syncPullCmd.Flags().BoolVar(&syncFlags.Force, "force", false, "Replace an existing local database")

	syncCmd.AddCommand(syncPushCmd, syncPullCmd, syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func withOnlineEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return startOnline(ctx, cfg, fn)
}

// startOnline starts an engine that must reach the cloud. Nothing is uploaded on close.
func startOnline(ctx context.Context, cfg *config.Config, fn func(*engine.Engine) error) error {
	if !cfg.Sync.Enabled {
		return errors.New("sync is disabled, set sync.enabled")
	}
	cfg.Sync.UploadOnExit = false

	eng, err := engine.New(cfg, engine.Options{})
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Close(context.WithoutCancel(ctx)) //nolint: errcheck

	if !eng.Online() {
		return engine.ErrOffline
	}
	return fn(eng)
}

func toUint64(n int64) uint64 {
	v, err := safecast.Convert[uint64](n)
	if err != nil {
		return 0
	}
	return v
}
