// Command scrapers crawls the supported real-estate websites and persists
// the extracted listings.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	settingsPath string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "scrapers",
	Short: "Real-estate listing scrapers",
	Long: "Scrapers crawls the supported real-estate websites, extracts " +
		"listing data, and persists it into PostgreSQL.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env file is optional; the container environment usually
		// provides the POSTGRES_* variables directly.
		_ = godotenv.Load()

		logger, level := newLogger(verbose)
		slog.SetDefault(logger)
		setLogLoggerLevel(level.Level())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "settings.yaml", "Path to the yaml settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
