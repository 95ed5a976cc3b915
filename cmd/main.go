package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"railwatch.dev/railwatch/config"
	"railwatch.dev/railwatch/schedule"
)

var rootCmd = &cobra.Command{
	Use:          "railwatch",
	Short:        "Scheduled-departure monitor",
	Long:         "Watches scheduled train departures against the realtime feed and announces delays",
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "railwatch.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(stopsCmd)
}

func main() {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Loads the config file, with environment overrides for the pieces
// that differ between deployments.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("RAILWATCH_SCHEDULE_URL"); v != "" {
		cfg.Schedule.URL = v
	}
	if v := os.Getenv("RAILWATCH_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("RAILWATCH_NOTIFY_URL"); v != "" {
		cfg.Notify.URL = v
	}
	if v := os.Getenv("RAILWATCH_LISTEN"); v != "" {
		cfg.Listen = v
	}

	return cfg, nil
}

func buildManager(cfg *config.Config) (*schedule.Manager, error) {
	return schedule.NewManager(cfg.Schedule.URL, cfg.Schedule.Dir)
}
