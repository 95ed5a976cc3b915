package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"railwatch.dev/railwatch/model"
)

// How far a scheduled departure may stray from the queried time and
// still count as the same train.
const MatchTolerance = 5 * time.Minute

var ErrNoStopsFound = errors.New("no stops found")

// Finds stops by name, case-insensitively. An exact name match
// returns that stop group alone; otherwise all stops whose name
// contains the query as a substring are returned.
func (idx *Index) FindStops(query string) ([]model.Stop, error) {
	key := strings.ToLower(query)

	if stops, found := idx.stopsByName[key]; found {
		return stops, nil
	}

	stops := []model.Stop{}
	for name, group := range idx.stopsByName {
		if strings.Contains(name, key) {
			stops = append(stops, group...)
		}
	}

	if len(stops) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNoStopsFound, query)
	}

	sort.Slice(stops, func(i, j int) bool {
		return stops[i].ID < stops[j].ID
	})

	return stops, nil
}

// Resolves an (origin name, destination name, target departure)
// query into the scheduled trips serving it on the given date
// (YYYYMMDD).
//
// A trip matches when it departs a source stop within MatchTolerance
// of target, calls at a destination stop strictly later in sequence
// order, and its service is active on date. Target and the returned
// times are offsets past midnight and may exceed 24h.
func (idx *Index) FindTrips(source, destination string, target time.Duration, date string) ([]model.MatchedTrip, error) {
	sourceStops, err := idx.FindStops(source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	destStops, err := idx.FindStops(destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	sourceSet := map[string]bool{}
	for _, stop := range sourceStops {
		sourceSet[stop.ID] = true
	}
	destSet := map[string]bool{}
	for _, stop := range destStops {
		destSet[stop.ID] = true
	}

	matches := []model.MatchedTrip{}
	for tripID, trip := range idx.trips {
		if !idx.ServiceActive(trip.ServiceID, date) {
			continue
		}

		stopTimes := idx.stopTimes[tripID]
		for i, origin := range stopTimes {
			if !sourceSet[origin.StopID] {
				continue
			}

			diff := origin.Departure - target
			if diff < -MatchTolerance || diff > MatchTolerance {
				continue
			}

			// Found a plausible origin. The destination
			// must come strictly after it.
			for _, dest := range stopTimes[i+1:] {
				if !destSet[dest.StopID] {
					continue
				}

				matches = append(matches, model.MatchedTrip{
					TripID:       tripID,
					OriginStopID: origin.StopID,
					DestStopID:   dest.StopID,
					OriginName:   idx.stopsByID[origin.StopID].Name,
					DestName:     idx.stopsByID[dest.StopID].Name,
					Departure:    origin.Departure,
					Arrival:      dest.Arrival,
				})
				break
			}
			break
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Departure != matches[j].Departure {
			return matches[i].Departure < matches[j].Departure
		}
		return matches[i].TripID < matches[j].TripID
	})

	return matches, nil
}
