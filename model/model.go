package model

import (
	"time"
)

// Holds the external facing types shared between the schedule index,
// the realtime feed and the monitor.

type ExceptionType int8

const (
	ServiceAdded   ExceptionType = 1
	ServiceRemoved ExceptionType = 2
)

type Stop struct {
	ID   string
	Name string
}

// A scheduled call at a stop. Arrival and Departure are offsets past
// the service day's midnight, and may exceed 24h for post-midnight
// trips (e.g. 25:10:00).
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Arrival      time.Duration
	Departure    time.Duration
}

type Trip struct {
	ID        string
	ServiceID string
}

// Weekly service pattern bounded by a date range. Dates are YYYYMMDD
// strings, Weekday is a bitmask indexed by time.Weekday.
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

// A single-date override of a Calendar. Takes precedence over the
// weekly pattern when the date matches exactly.
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType ExceptionType
}

// A scheduled trip leg resolved from an (origin, destination, time)
// query. Derived per lookup, never stored.
type MatchedTrip struct {
	TripID       string
	OriginStopID string
	DestStopID   string
	OriginName   string
	DestName     string
	Departure    time.Duration
	Arrival      time.Duration
}

// Realtime delay for one trip at one stop. Found is false when the
// feed carries no update for the trip at all.
type Delay struct {
	Found   bool
	Seconds int
}
