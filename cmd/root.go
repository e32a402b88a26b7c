package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// version is set at build time.
var version = "dev"

var rootCmdPersistentFlags struct {
	LogFile    string
	ConfigFile string
	LogLevel   string
	Offline    bool
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogFile, "log-file", "", "File to write logs to (rotated at 10 MB)")
	rootCmd.PersistentFlags().StringVarP(&rootCmdPersistentFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.mediashelf, /etc/mediashelf)")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
	rootCmd.PersistentFlags().BoolVar(&rootCmdPersistentFlags.Offline, "offline", false, "Skip sign-in and cloud sync")
}

var rootCmd = &cobra.Command{
	Use:   "mediashelf",
	Short: "mediashelf tracks the movies, series, games, manga and books you watch, play and read",
	Long: `mediashelf keeps a personal media library in a local SQLite file, enriches records
from TMDB, OMDb, MyAnimeList and RAWG, and syncs the file through your Google Drive.`,
	Example: `mediashelf serve --config config.yml
  mediashelf list movies --section watching
  mediashelf sync status`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if rootCmdPersistentFlags.LogLevel != "" {
			setLogLevel(rootCmdPersistentFlags.LogLevel)
		}
		logToFile()
	},
}

// loadConfig loads the configuration and applies its log level unless --log-level was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if rootCmdPersistentFlags.LogLevel == "" {
		setLogLevel(cfg.LogLevel)
	}
	return cfg, nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info", "":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warn("unknown log level, defaulting to info", "level", level)
		log.SetLevel(log.InfoLevel)
	}
}

func logToFile() {
	if rootCmdPersistentFlags.LogFile == "" {
		return
	}
	file := &lumberjack.Logger{
		Filename:   rootCmdPersistentFlags.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	log.Debug("logging to console and file", "file", rootCmdPersistentFlags.LogFile)
}

func Execute() error {
	return fang.Execute(context.Background(), rootCmd, fang.WithVersion(version))
}
