package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"railwatch.dev/railwatch/config"
	"railwatch.dev/railwatch/feed"
	"railwatch.dev/railwatch/model"
	"railwatch.dev/railwatch/schedule"
)

const (
	DefaultInterval = 60 * time.Second
	DefaultWindow   = 30 * time.Minute
	DefaultThrottle = 5 * time.Minute
)

// Yields a fresh-enough schedule index.
type ScheduleSource interface {
	Index(ctx context.Context) (*schedule.Index, error)
}

// Yields the current realtime feed snapshot.
type FeedSource interface {
	Fetch(ctx context.Context) (*feed.Snapshot, error)
}

// Best-effort announcement sink. Never reports failure back.
type Announcer interface {
	Announce(ctx context.Context, message string, playAudio bool)
}

// Best-effort push notification sink. No-op for an empty user list.
type Notifier interface {
	Push(ctx context.Context, message string, users []string)
}

// Monitor drives the recurring departure checks. One cycle walks the
// watch entries in order, so announcements within a cycle follow
// config order.
type Monitor struct {
	Schedule  ScheduleSource
	Feed      FeedSource
	Announcer Announcer
	Notifier  Notifier

	// Reloaded every cycle so config edits are picked up without
	// a restart. A load failure skips that cycle only.
	LoadWatches func() ([]config.WatchEntry, error)

	Interval time.Duration
	Window   time.Duration
	Throttle time.Duration

	// Injectable clock. Tests drive RunCycle directly with a
	// controlled Now instead of waiting on real time.
	Now func() time.Time

	State *State

	logger *slog.Logger
}

func New(
	sched ScheduleSource,
	feedSrc FeedSource,
	announcer Announcer,
	notifier Notifier,
	loadWatches func() ([]config.WatchEntry, error),
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		Schedule:    sched,
		Feed:        feedSrc,
		Announcer:   announcer,
		Notifier:    notifier,
		LoadWatches: loadWatches,
		Interval:    DefaultInterval,
		Window:      DefaultWindow,
		Throttle:    DefaultThrottle,
		Now:         time.Now,
		State:       NewState(),
		logger:      logger,
	}
}

// Runs cycles at the configured interval until the context is
// cancelled. The first cycle runs immediately.
func (m *Monitor) Run(ctx context.Context) {
	m.RunCycle(ctx)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunCycle(ctx)
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		}
	}
}

// Runs one monitoring cycle: gate, filter, check, dispatch, prune.
func (m *Monitor) RunCycle(ctx context.Context) {
	now := m.Now()
	today := now.Format("20060102")

	defer func() {
		m.State.Prune(today)
		cyclesTotal.Inc()
	}()

	if m.State.Suppressed(now, today) {
		m.logger.Debug("cycle suppressed", "date", today)
		return
	}

	watches, err := m.LoadWatches()
	if err != nil {
		m.logger.Error("loading watch entries", "error", err)
		return
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, entry := range watches {
		if !entry.ActiveOn(now.Weekday()) {
			continue
		}

		// Departure times are offsets past midnight, like the
		// schedule's own stop times, so the comparison works
		// for post-midnight entries too.
		target, err := schedule.ParseTimeOfDay(entry.Departure)
		if err != nil {
			// Load-time validation makes this unreachable
			// for config-sourced entries.
			m.logger.Error("invalid departure time", "departure", entry.Departure, "error", err)
			continue
		}

		untilDeparture := target - now.Sub(midnight)
		if untilDeparture < 0 || untilDeparture > m.Window {
			continue
		}

		key := departureKey(entry, today)
		if m.State.Throttled(key, now, m.Throttle) {
			continue
		}
		m.State.MarkChecked(key, now)

		m.check(ctx, entry, key, target, today)
	}
}

func (m *Monitor) check(ctx context.Context, entry config.WatchEntry, key string, target time.Duration, today string) {
	checksTotal.Inc()
	clock := schedule.FormatClock(target)

	message, err := m.buildStatus(ctx, entry, clock, target, today)
	if err != nil {
		// Failed checks always reach the user, and are exempt
		// from dedup so a persistent problem keeps
		// re-announcing.
		checkErrorsTotal.Inc()
		m.logger.Warn("check failed", "source", entry.Source, "destination", entry.Destination, "error", err)
		m.dispatch(ctx, entry, fmt.Sprintf("Error checking the %s train from %s to %s: %v.", clock, entry.Source, entry.Destination, err))
		return
	}

	if !m.State.RecordMessage(key, message) {
		dedupSuppressedTotal.Inc()
		m.logger.Debug("message unchanged", "key", key)
		return
	}

	m.dispatch(ctx, entry, message)
}

// Builds the success-path status message: one line per matched trip,
// or a no-train line when nothing matches.
func (m *Monitor) buildStatus(ctx context.Context, entry config.WatchEntry, clock string, target time.Duration, today string) (string, error) {
	idx, err := m.Schedule.Index(ctx)
	if err != nil {
		return "", err
	}

	matches, err := idx.FindTrips(entry.Source, entry.Destination, target, today)
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No scheduled train found from %s to %s at %s.", entry.Source, entry.Destination, clock), nil
	}

	snap, err := m.Feed.Fetch(ctx)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(matches))
	for _, match := range matches {
		lines = append(lines, statusLine(entry, clock, match, snap.DelayFor(match.TripID, match.OriginStopID)))
	}

	return strings.Join(lines, "\n"), nil
}

func statusLine(entry config.WatchEntry, clock string, match model.MatchedTrip, delay model.Delay) string {
	if !delay.Found {
		return fmt.Sprintf("%s train, from %s to %s, has no realtime data.", clock, entry.Source, entry.Destination)
	}
	return fmt.Sprintf("%s train, from %s to %s, is %s.", clock, entry.Source, entry.Destination, feed.FormatDelay(delay.Seconds))
}

func (m *Monitor) dispatch(ctx context.Context, entry config.WatchEntry, message string) {
	dispatchesTotal.Inc()
	m.Announcer.Announce(ctx, message, entry.Audio)
	m.Notifier.Push(ctx, message, entry.Users)
}

// The throttle/dedup identity for one watched departure on one
// calendar date. Two entries with identical tuples share a slot.
func departureKey(entry config.WatchEntry, date string) string {
	return fmt.Sprintf("%s|%s|%s|%s", entry.Source, entry.Destination, entry.Departure, date)
}
