package schedule

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"railwatch.dev/railwatch/model"
)

type stopCSV struct {
	ID   string `csv:"stop_id"`
	Name string `csv:"stop_name"`
}

type stopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

type tripCSV struct {
	ID        string `csv:"trip_id"`
	ServiceID string `csv:"service_id"`
}

type calendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

func init() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// Loads and indexes a schedule snapshot from a directory of GTFS
// tables. stops.txt, trips.txt and stop_times.txt are required;
// calendar.txt and calendar_dates.txt default to empty. Any parse or
// validation failure fails the whole load, so callers never see a
// partially built Index.
func Load(dir string) (*Index, error) {
	idx := &Index{
		stopsByName: map[string][]model.Stop{},
		stopsByID:   map[string]model.Stop{},
		trips:       map[string]model.Trip{},
		stopTimes:   map[string][]model.StopTime{},
		calendars:   map[string]model.Calendar{},
		exceptions:  map[string][]model.CalendarDate{},
	}

	err := withTable(dir, "stops.txt", true, func(r io.Reader) error {
		return parseStops(idx, r)
	})
	if err != nil {
		return nil, err
	}

	err = withTable(dir, "trips.txt", true, func(r io.Reader) error {
		return parseTrips(idx, r)
	})
	if err != nil {
		return nil, err
	}

	err = withTable(dir, "stop_times.txt", true, func(r io.Reader) error {
		return parseStopTimes(idx, r)
	})
	if err != nil {
		return nil, err
	}

	err = withTable(dir, "calendar.txt", false, func(r io.Reader) error {
		return parseCalendar(idx, r)
	})
	if err != nil {
		return nil, err
	}

	err = withTable(dir, "calendar_dates.txt", false, func(r io.Reader) error {
		return parseCalendarDates(idx, r)
	})
	if err != nil {
		return nil, err
	}

	for tripID := range idx.stopTimes {
		sort.SliceStable(idx.stopTimes[tripID], func(i, j int) bool {
			return idx.stopTimes[tripID][i].StopSequence < idx.stopTimes[tripID][j].StopSequence
		})
	}

	return idx, nil
}

func withTable(dir, name string, required bool, parse func(io.Reader) error) error {
	f, err := os.Open(filepath.Join(dir, name))
	if os.IsNotExist(err) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	if err := parse(f); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func parseStops(idx *Index, data io.Reader) error {
	records := []*stopCSV{}
	if err := gocsv.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, st := range records {
		if st.ID == "" {
			return fmt.Errorf("empty stop_id")
		}
		if _, found := idx.stopsByID[st.ID]; found {
			return fmt.Errorf("repeated stop_id %q", st.ID)
		}
		if st.Name == "" {
			return fmt.Errorf("empty stop_name for stop_id %q", st.ID)
		}

		stop := model.Stop{ID: st.ID, Name: st.Name}
		idx.stopsByID[st.ID] = stop

		// Many stops may share a name (platforms, duplicated
		// ids), so the name index is a multimap.
		key := strings.ToLower(st.Name)
		idx.stopsByName[key] = append(idx.stopsByName[key], stop)
	}

	return nil
}

func parseTrips(idx *Index, data io.Reader) error {
	records := []*tripCSV{}
	if err := gocsv.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, t := range records {
		if t.ID == "" {
			return fmt.Errorf("empty trip_id")
		}
		if _, found := idx.trips[t.ID]; found {
			return fmt.Errorf("repeated trip_id %q", t.ID)
		}

		// A service_id not covered by calendar.txt or
		// calendar_dates.txt simply never runs, so it isn't
		// validated here.
		idx.trips[t.ID] = model.Trip{ID: t.ID, ServiceID: t.ServiceID}
	}

	return nil
}

func parseStopTimes(idx *Index, data io.Reader) error {
	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *stopTimeCSV) error {
		i += 1
		if _, found := idx.trips[st.TripID]; !found {
			return fmt.Errorf("unknown trip_id %q (row %d)", st.TripID, i+1)
		}
		if st.StopID == "" {
			return fmt.Errorf("missing stop_id (row %d)", i+1)
		}
		if _, found := idx.stopsByID[st.StopID]; !found {
			return fmt.Errorf("unknown stop_id %q (row %d)", st.StopID, i+1)
		}

		arrival, err := ParseTimeOfDay(st.ArrivalTime)
		if err != nil {
			return errors.Wrapf(err, "parsing arrival_time (row %d)", i+1)
		}

		departure, err := ParseTimeOfDay(st.DepartureTime)
		if err != nil {
			return errors.Wrapf(err, "parsing departure_time (row %d)", i+1)
		}

		idx.stopTimes[st.TripID] = append(idx.stopTimes[st.TripID], model.StopTime{
			TripID:       st.TripID,
			StopID:       st.StopID,
			StopSequence: st.StopSequence,
			Arrival:      arrival,
			Departure:    departure,
		})

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling csv")
	}

	// stop_sequence must be unique within a trip
	for tripID, sts := range idx.stopTimes {
		seen := map[uint32]bool{}
		for _, st := range sts {
			if seen[st.StopSequence] {
				return fmt.Errorf("duplicate stop_sequence %d for trip_id %q", st.StopSequence, tripID)
			}
			seen[st.StopSequence] = true
		}
	}

	return nil
}

func parseCalendar(idx *Index, data io.Reader) error {
	records := []*calendarCSV{}
	if err := gocsv.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, c := range records {
		if c.ServiceID == "" {
			return fmt.Errorf("empty service_id")
		}
		if _, found := idx.calendars[c.ServiceID]; found {
			return fmt.Errorf("repeated service_id %q", c.ServiceID)
		}

		var weekday int8
		for _, day := range []struct {
			name  string
			value int8
			bit   time.Weekday
		}{
			{"monday", c.Monday, time.Monday},
			{"tuesday", c.Tuesday, time.Tuesday},
			{"wednesday", c.Wednesday, time.Wednesday},
			{"thursday", c.Thursday, time.Thursday},
			{"friday", c.Friday, time.Friday},
			{"saturday", c.Saturday, time.Saturday},
			{"sunday", c.Sunday, time.Sunday},
		} {
			if day.value == 1 {
				weekday |= 1 << day.bit
			} else if day.value != 0 {
				return fmt.Errorf("invalid %s value '%d'", day.name, day.value)
			}
		}

		if _, err := time.ParseInLocation("20060102", c.StartDate, time.UTC); err != nil {
			return fmt.Errorf("parsing start_date: %w", err)
		}
		if _, err := time.ParseInLocation("20060102", c.EndDate, time.UTC); err != nil {
			return fmt.Errorf("parsing end_date: %w", err)
		}

		idx.calendars[c.ServiceID] = model.Calendar{
			ServiceID: c.ServiceID,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Weekday:   weekday,
		}
	}

	return nil
}

func parseCalendarDates(idx *Index, data io.Reader) error {
	records := []*calendarDateCSV{}
	if err := gocsv.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("unmarshaling csv: %w", err)
	}

	seen := map[string]bool{}
	for _, cd := range records {
		if cd.ExceptionType < 1 || cd.ExceptionType > 2 {
			return fmt.Errorf("illegal exception_type '%d'", cd.ExceptionType)
		}
		if _, err := time.ParseInLocation("20060102", cd.Date, time.UTC); err != nil {
			return fmt.Errorf("parsing date %q: %w", cd.Date, err)
		}

		serviceDate := fmt.Sprintf("%s-%s", cd.Date, cd.ServiceID)
		if seen[serviceDate] {
			return fmt.Errorf("duplicate service/date %q", serviceDate)
		}
		seen[serviceDate] = true

		idx.exceptions[cd.ServiceID] = append(idx.exceptions[cd.ServiceID], model.CalendarDate{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: model.ExceptionType(cd.ExceptionType),
		})
	}

	return nil
}
