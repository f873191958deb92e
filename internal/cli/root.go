// Package cli implements the robustfetch command line.
package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "robustfetch",
	Short: "Fetch URLs with failure classification and retries",
	Long: `robustfetch downloads pages and files over HTTP. Every failure is classified
and either retried, retried a limited number of times, skipped, or treated as
fatal for the whole batch. Garbled redirect targets are repaired automatically.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "jobs.yaml", "job file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// newLogger builds the process logger. Text output goes through tint.
func newLogger(w io.Writer, level, format string, debug bool) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch {
	case debug || level == "debug":
		slogLevel = slog.LevelDebug
	case level == "warn":
		slogLevel = slog.LevelWarn
	case level == "error":
		slogLevel = slog.LevelError
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	}))
}
