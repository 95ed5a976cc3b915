package monitor

import (
	"strings"
	"sync"
	"time"
)

const SnoozeDuration = 24 * time.Hour

// Process-lifetime monitoring state. The poll loop and the control
// surface handlers touch this concurrently, so every access goes
// through the mutex. Nothing here is persisted.
type State struct {
	mu          sync.Mutex
	snoozeUntil time.Time
	skipDates   map[string]bool      // YYYYMMDD
	lastChecked map[string]time.Time // by departure key
	lastMessage map[string]string    // by departure key
}

func NewState() *State {
	return &State{
		skipDates:   map[string]bool{},
		lastChecked: map[string]time.Time{},
		lastMessage: map[string]string{},
	}
}

// Suppresses all checks until now + 24h. Re-snoozing resets the
// window. Returns the new cutoff.
func (s *State) Snooze(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snoozeUntil = now.Add(SnoozeDuration)
	return s.snoozeUntil
}

// Adds tomorrow to the skip set and returns it. Repeated calls on
// the same day are no-ops.
func (s *State) SkipNextDay(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	tomorrow := now.AddDate(0, 0, 1)
	s.skipDates[tomorrow.Format("20060102")] = true
	return tomorrow
}

// The global gate: true while snoozed or when the given date
// (YYYYMMDD) is in the skip set.
func (s *State) Suppressed(now time.Time, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Before(s.snoozeUntil) || s.skipDates[date]
}

// Reports whether the key was checked within the throttle window.
func (s *State) Throttled(key string, now time.Time, throttle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, found := s.lastChecked[key]
	return found && now.Sub(last) < throttle
}

func (s *State) MarkChecked(key string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastChecked[key] = now
}

// Records the message for the key, returning false if it is
// identical to the previous one (i.e. the caller should suppress
// dispatch).
func (s *State) RecordMessage(key, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastMessage[key] == message {
		return false
	}
	s.lastMessage[key] = message
	return true
}

// Drops throttle and dedup entries scoped to prior days, and skip
// dates that have passed. Called at the end of every cycle so none
// of the maps grow without bound.
func (s *State) Prune(today string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.lastChecked {
		if keyDate(key) != today {
			delete(s.lastChecked, key)
		}
	}
	for key := range s.lastMessage {
		if keyDate(key) != today {
			delete(s.lastMessage, key)
		}
	}
	for date := range s.skipDates {
		if date < today {
			delete(s.skipDates, date)
		}
	}
}

// The date component is the final |-separated segment of a departure
// key.
func keyDate(key string) string {
	i := strings.LastIndex(key, "|")
	if i < 0 {
		return ""
	}
	return key[i+1:]
}
