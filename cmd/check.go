package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"railwatch.dev/railwatch/feed"
	"railwatch.dev/railwatch/schedule"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every watch entry once, regardless of time window",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}

	idx, err := manager.Index(cmd.Context())
	if err != nil {
		return err
	}

	fetcher := feed.NewFetcher(cfg.Feed.URL)
	snap, err := fetcher.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	today := time.Now().Format("20060102")

	for _, entry := range cfg.Watches {
		target, err := schedule.ParseTimeOfDay(entry.Departure)
		if err != nil {
			return fmt.Errorf("watch %s to %s: %w", entry.Source, entry.Destination, err)
		}
		clock := schedule.FormatClock(target)

		matches, err := idx.FindTrips(entry.Source, entry.Destination, target, today)
		if err != nil {
			fmt.Printf("%s to %s at %s: %v\n", entry.Source, entry.Destination, clock, err)
			continue
		}

		if len(matches) == 0 {
			fmt.Printf("No scheduled train found from %s to %s at %s.\n", entry.Source, entry.Destination, clock)
			continue
		}

		for _, match := range matches {
			delay := snap.DelayFor(match.TripID, match.OriginStopID)
			if !delay.Found {
				fmt.Printf("%s train, from %s to %s: trip %s not in realtime feed\n",
					clock, entry.Source, entry.Destination, match.TripID)
				continue
			}
			fmt.Printf("%s train, from %s to %s, is %s.\n",
				clock, entry.Source, entry.Destination, feed.FormatDelay(delay.Seconds))
		}
	}

	return nil
}
