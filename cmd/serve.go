package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/api"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the HTTP drain and the upload on exit.
const shutdownTimeout = 2 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the loopback API",
	Long: `Sign in, reconcile the local database with the cloud copy and serve the JSON API
for a desktop front end. The database is uploaded again on shutdown.`,
	Example: `mediashelf serve --config config.yml
mediashelf serve --offline --log-level debug
`,
	RunE: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(cfg, engine.Options{Offline: rootCmdPersistentFlags.Offline})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	server, err := api.New(cfg, eng, log.GetLevel() == log.DebugLevel)
	if err != nil {
		_ = eng.Close(context.WithoutCancel(ctx))
		return fmt.Errorf("failed to create API server: %w", err)
	}

	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error("engine error", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run()
	}()

	log.Info("mediashelf started", "listen", cfg.Listen, "online", eng.Online())
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully...")
	case err = <-serverErr:
		if err != nil {
			log.Error("API server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down API server", "error", err)
	}
	if cerr := eng.Close(shutdownCtx); cerr != nil {
		return cerr
	}
	return err
}
