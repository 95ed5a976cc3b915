package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"railwatch.dev/railwatch/audio"
	"railwatch.dev/railwatch/config"
	"railwatch.dev/railwatch/control"
	"railwatch.dev/railwatch/feed"
	"railwatch.dev/railwatch/monitor"
	"railwatch.dev/railwatch/notify"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the departure monitor and control server",
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A schedule that can't be indexed at all is fatal here; once
	// monitoring is running, index failures only fail that check.
	if _, err := manager.Index(ctx); err != nil {
		return fmt.Errorf("initial schedule load: %w", err)
	}

	mon := monitor.New(
		manager,
		feed.NewFetcher(cfg.Feed.URL),
		audio.NewAnnouncer(cfg.Audio.PlayerCmd, cfg.Audio.ChimePath, cfg.Audio.VoiceCmd, logger),
		notify.NewPusher(cfg.Notify.URL, logger),
		func() ([]config.WatchEntry, error) {
			fresh, err := loadConfig()
			if err != nil {
				return nil, err
			}
			return fresh.Watches, nil
		},
		logger,
	)
	mon.Interval = cfg.Interval()

	ctrl := control.New(cfg.Listen, mon.State, logger)
	go func() {
		if err := ctrl.ListenAndServe(ctx); err != nil {
			logger.Error("control server", "error", err)
		}
	}()

	logger.Info("monitoring departures", "watches", len(cfg.Watches), "interval", mon.Interval)
	mon.Run(ctx)

	return nil
}
