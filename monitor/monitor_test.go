package monitor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railwatch.dev/railwatch/config"
	"railwatch.dev/railwatch/feed"
	"railwatch.dev/railwatch/schedule"
	"railwatch.dev/railwatch/testutil"
)

type fakeSchedule struct {
	idx *schedule.Index
	err error
}

func (f *fakeSchedule) Index(ctx context.Context) (*schedule.Index, error) {
	return f.idx, f.err
}

type fakeFeed struct {
	snap *feed.Snapshot
	err  error
}

func (f *fakeFeed) Fetch(ctx context.Context) (*feed.Snapshot, error) {
	return f.snap, f.err
}

type dispatchRecorder struct {
	announced []string
	audio     []bool
	pushed    []string
	users     [][]string
}

func (r *dispatchRecorder) Announce(ctx context.Context, message string, playAudio bool) {
	r.announced = append(r.announced, message)
	r.audio = append(r.audio, playAudio)
}

func (r *dispatchRecorder) Push(ctx context.Context, message string, users []string) {
	r.pushed = append(r.pushed, message)
	r.users = append(r.users, users)
}

func pennToMineolaIndex(t *testing.T) *schedule.Index {
	return testutil.LoadSchedule(t, map[string][]string{
		"stops.txt": {
			"stop_id,stop_name",
			"101,Penn Station",
			"205,Mineola",
		},
		"trips.txt": {"trip_id,service_id", "east1,daily"},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"east1,101,1,08:15:00,08:15:00",
			"east1,205,2,08:53:00,08:53:00",
		},
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"daily,20200101,20301231,1,1,1,1,1,1,1",
		},
	})
}

func delayedFeed(t *testing.T, seconds int) *feed.Snapshot {
	snap, err := feed.Decode(testutil.BuildFeed(t, map[string][]testutil.StopDelay{
		"east1": {{StopID: "101", Departure: testutil.Seconds(seconds)}},
	}))
	require.NoError(t, err)
	return snap
}

// 2026-08-24 is a Monday.
var monday0750 = time.Date(2026, 8, 24, 7, 50, 0, 0, time.UTC)

func testMonitor(t *testing.T, watches []config.WatchEntry) (*Monitor, *dispatchRecorder, *time.Time) {
	rec := &dispatchRecorder{}
	now := monday0750

	m := New(
		&fakeSchedule{idx: pennToMineolaIndex(t)},
		&fakeFeed{snap: delayedFeed(t, 185)},
		rec,
		rec,
		func() ([]config.WatchEntry, error) { return watches, nil },
		slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	)
	m.Now = func() time.Time { return now }

	return m, rec, &now
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

var pennWatch = config.WatchEntry{
	Source:      "Penn Station",
	Destination: "Mineola",
	Departure:   "08:15",
	Days:        []string{"mon"},
	Users:       []string{"alice"},
	Audio:       true,
}

func TestRunCycleAnnouncesDelay(t *testing.T) {
	m, rec, _ := testMonitor(t, []config.WatchEntry{pennWatch})

	m.RunCycle(context.Background())

	require.Len(t, rec.announced, 1)
	assert.Equal(t, "8:15 AM train, from Penn Station to Mineola, is 3 minutes late.", rec.announced[0])
	assert.True(t, rec.audio[0])

	require.Len(t, rec.pushed, 1)
	assert.Equal(t, rec.announced[0], rec.pushed[0])
	assert.Equal(t, []string{"alice"}, rec.users[0])
}

func TestRunCycleDedup(t *testing.T) {
	m, rec, now := testMonitor(t, []config.WatchEntry{pennWatch})

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)

	// Past the throttle, same delay: message unchanged, suppressed
	*now = monday0750.Add(6 * time.Minute)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 1)

	// Delay changes: announced again
	m.Feed = &fakeFeed{snap: delayedFeed(t, 400)}
	*now = monday0750.Add(12 * time.Minute)
	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 2)
	assert.Equal(t, "8:15 AM train, from Penn Station to Mineola, is 7 minutes late.", rec.announced[1])
}

func TestRunCycleThrottle(t *testing.T) {
	m, rec, now := testMonitor(t, []config.WatchEntry{pennWatch})

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)

	// Next cycle a minute later is throttled outright, so even a
	// changed delay goes unnoticed until the throttle lapses.
	m.Feed = &fakeFeed{snap: delayedFeed(t, 400)}
	*now = monday0750.Add(time.Minute)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 1)

	*now = monday0750.Add(5 * time.Minute)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 2)
}

func TestRunCycleWindow(t *testing.T) {
	m, rec, now := testMonitor(t, []config.WatchEntry{pennWatch})

	// Too early: window opens 30 minutes before departure
	*now = time.Date(2026, 8, 24, 7, 44, 0, 0, time.UTC)
	m.RunCycle(context.Background())
	assert.Empty(t, rec.announced)

	// Already departed
	*now = time.Date(2026, 8, 24, 8, 16, 0, 0, time.UTC)
	m.RunCycle(context.Background())
	assert.Empty(t, rec.announced)

	// Boundary: exactly at departure still counts
	*now = time.Date(2026, 8, 24, 8, 15, 0, 0, time.UTC)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 1)
}

func TestRunCycleDaysFilter(t *testing.T) {
	tuesdayOnly := pennWatch
	tuesdayOnly.Days = []string{"tue"}

	m, rec, _ := testMonitor(t, []config.WatchEntry{tuesdayOnly})

	m.RunCycle(context.Background())
	assert.Empty(t, rec.announced)
}

func TestRunCycleSnooze(t *testing.T) {
	watch := pennWatch
	watch.Departure = "09:15"

	m, rec, now := testMonitor(t, []config.WatchEntry{watch})

	// Snoozed Sunday 08:00
	m.State.Snooze(time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC))

	// Monday 07:00, 23h later: fully suppressed
	*now = time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)
	m.RunCycle(context.Background())
	assert.Empty(t, rec.announced)

	// Monday 09:00, 25h later: proceeds
	*now = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 1)
}

func TestRunCycleSkipDate(t *testing.T) {
	m, rec, _ := testMonitor(t, []config.WatchEntry{pennWatch})

	// Skip requested on Sunday covers Monday entirely
	m.State.SkipNextDay(time.Date(2026, 8, 23, 20, 0, 0, 0, time.UTC))

	m.RunCycle(context.Background())
	assert.Empty(t, rec.announced)
}

func TestRunCycleErrorsAlwaysDispatched(t *testing.T) {
	m, rec, now := testMonitor(t, []config.WatchEntry{pennWatch})
	m.Feed = &fakeFeed{err: assert.AnError}

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)
	assert.Contains(t, rec.announced[0], "Error checking the 8:15 AM train from Penn Station to Mineola")

	// Identical error next time around: still dispatched, errors
	// are exempt from dedup.
	*now = monday0750.Add(6 * time.Minute)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 2)
	assert.Equal(t, rec.announced[0], rec.announced[1])
}

func TestRunCycleUnknownStop(t *testing.T) {
	watch := pennWatch
	watch.Source = "Narnia"

	m, rec, _ := testMonitor(t, []config.WatchEntry{watch})

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)
	assert.Contains(t, rec.announced[0], "no stops found")
}

func TestRunCycleNoScheduledTrain(t *testing.T) {
	watch := pennWatch
	watch.Departure = "11:15"

	m, rec, now := testMonitor(t, []config.WatchEntry{watch})
	*now = time.Date(2026, 8, 24, 10, 50, 0, 0, time.UTC)

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)
	assert.Equal(t, "No scheduled train found from Penn Station to Mineola at 11:15 AM.", rec.announced[0])
}

func TestRunCycleConfigLoadFailureSkipsCycle(t *testing.T) {
	m, rec, _ := testMonitor(t, nil)
	m.LoadWatches = func() ([]config.WatchEntry, error) { return nil, assert.AnError }

	m.RunCycle(context.Background())
	assert.Empty(t, rec.announced)
	assert.Empty(t, rec.pushed)
}

func TestRunCycleSharedDepartureKey(t *testing.T) {
	// Two identical tuples collapse to one throttle/dedup slot.
	m, rec, _ := testMonitor(t, []config.WatchEntry{pennWatch, pennWatch})

	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 1)
}

func TestRunCyclePrunesState(t *testing.T) {
	m, rec, now := testMonitor(t, []config.WatchEntry{pennWatch})

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)

	// The same check on the next Monday is not deduped against
	// last week's message: day-scoped state was pruned.
	*now = monday0750.AddDate(0, 0, 7)
	m.RunCycle(context.Background())
	assert.Len(t, rec.announced, 2)

	m.State.mu.Lock()
	defer m.State.mu.Unlock()
	assert.Len(t, m.State.lastChecked, 1)
	assert.Len(t, m.State.lastMessage, 1)
}

func TestRunCycleNoRealtimeData(t *testing.T) {
	m, rec, _ := testMonitor(t, []config.WatchEntry{pennWatch})

	snap, err := feed.Decode(testutil.BuildFeed(t, map[string][]testutil.StopDelay{
		"other": {},
	}))
	require.NoError(t, err)
	m.Feed = &fakeFeed{snap: snap}

	m.RunCycle(context.Background())
	require.Len(t, rec.announced, 1)
	assert.Equal(t, "8:15 AM train, from Penn Station to Mineola, has no realtime data.", rec.announced[0])
}
