package schedule

import (
	"time"

	"railwatch.dev/railwatch/model"
)

// An immutable in-memory index over one schedule snapshot. Built
// atomically by Load and treated as read-only from then on.
type Index struct {
	stopsByName map[string][]model.Stop
	stopsByID   map[string]model.Stop
	trips       map[string]model.Trip
	stopTimes   map[string][]model.StopTime
	calendars   map[string]model.Calendar
	exceptions  map[string][]model.CalendarDate
}

// Reports whether a service runs on the given date (YYYYMMDD). An
// exact-date calendar exception is authoritative; otherwise the date
// must fall within the service's range and match its weekly pattern.
func (idx *Index) ServiceActive(serviceID, date string) bool {
	for _, exc := range idx.exceptions[serviceID] {
		if exc.Date == date {
			return exc.ExceptionType == model.ServiceAdded
		}
	}

	cal, found := idx.calendars[serviceID]
	if !found {
		return false
	}

	if date < cal.StartDate || date > cal.EndDate {
		return false
	}

	day, err := time.ParseInLocation("20060102", date, time.UTC)
	if err != nil {
		return false
	}

	return cal.Weekday&(1<<day.Weekday()) != 0
}

// Stop lookup by id. Second return is false for unknown ids.
func (idx *Index) Stop(id string) (model.Stop, bool) {
	stop, found := idx.stopsByID[id]
	return stop, found
}

func (idx *Index) Trip(id string) (model.Trip, bool) {
	trip, found := idx.trips[id]
	return trip, found
}

// Ordered stop times for a trip.
func (idx *Index) StopTimes(tripID string) []model.StopTime {
	return idx.stopTimes[tripID]
}
