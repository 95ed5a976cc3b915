package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateSnooze(t *testing.T) {
	s := NewState()
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

	assert.False(t, s.Suppressed(now, "20260824"))

	cutoff := s.Snooze(now)
	assert.Equal(t, now.Add(24*time.Hour), cutoff)

	assert.True(t, s.Suppressed(now, "20260824"))
	assert.True(t, s.Suppressed(now.Add(23*time.Hour), "20260825"))
	assert.False(t, s.Suppressed(now.Add(25*time.Hour), "20260825"))

	// Re-snoozing resets the window
	cutoff = s.Snooze(now.Add(2 * time.Hour))
	assert.Equal(t, now.Add(26*time.Hour), cutoff)
	assert.True(t, s.Suppressed(now.Add(25*time.Hour), "20260825"))
}

func TestStateSkipNextDay(t *testing.T) {
	s := NewState()
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

	skipped := s.SkipNextDay(now)
	assert.Equal(t, "20260825", skipped.Format("20060102"))

	assert.False(t, s.Suppressed(now, "20260824"))
	assert.True(t, s.Suppressed(now.Add(24*time.Hour), "20260825"))

	// Repeated calls are no-op adds
	s.SkipNextDay(now)
	assert.True(t, s.Suppressed(now.Add(24*time.Hour), "20260825"))
}

func TestStateThrottle(t *testing.T) {
	s := NewState()
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	throttle := 5 * time.Minute

	assert.False(t, s.Throttled("k", now, throttle))

	s.MarkChecked("k", now)
	assert.True(t, s.Throttled("k", now.Add(4*time.Minute), throttle))
	assert.False(t, s.Throttled("k", now.Add(5*time.Minute), throttle))
	assert.False(t, s.Throttled("other", now.Add(time.Minute), throttle))
}

func TestStateRecordMessage(t *testing.T) {
	s := NewState()

	assert.True(t, s.RecordMessage("k", "msg"))
	assert.False(t, s.RecordMessage("k", "msg"))
	assert.True(t, s.RecordMessage("k", "changed"))
	assert.False(t, s.RecordMessage("k", "changed"))
}

func TestStatePrune(t *testing.T) {
	s := NewState()
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

	s.MarkChecked("a|b|08:15|20260823", now)
	s.MarkChecked("a|b|08:15|20260824", now)
	s.RecordMessage("a|b|08:15|20260823", "old")
	s.RecordMessage("a|b|08:15|20260824", "current")
	s.skipDates["20260820"] = true
	s.skipDates["20260824"] = true
	s.skipDates["20260825"] = true

	s.Prune("20260824")

	assert.Len(t, s.lastChecked, 1)
	assert.True(t, s.Throttled("a|b|08:15|20260824", now, 5*time.Minute))
	assert.False(t, s.RecordMessage("a|b|08:15|20260824", "current"))
	assert.True(t, s.RecordMessage("a|b|08:15|20260823", "old"))

	// Today and tomorrow survive, the past does not
	assert.Equal(t, map[string]bool{"20260824": true, "20260825": true}, s.skipDates)
}
