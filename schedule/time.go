package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parses a GTFS style time-of-day into an offset past midnight.
//
// Accepts H:MM, HH:MM, H:MM:SS and HH:MM:SS. Hours may exceed 24 for
// trips that run past midnight: "25:10:00" is 25h10m into the service
// day, not 01:10 the next morning.
func ParseTimeOfDay(s string) (time.Duration, error) {
	split := strings.Split(s, ":")
	if len(split) != 2 && len(split) != 3 {
		return 0, fmt.Errorf("found %d parts in %q", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(str)
		if err != nil {
			return 0, fmt.Errorf("non-integer in %q pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return 0, fmt.Errorf("invalid second in %q", s)
	}

	return time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second, nil
}

// Renders an offset past midnight as a 12-hour clock time, e.g. "8:15
// AM". Offsets beyond 24h wrap around to the next morning.
func FormatClock(offset time.Duration) string {
	offset = offset % (24 * time.Hour)
	h := int(offset.Hours())
	m := int(offset.Minutes()) - h*60
	return time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Format("3:04 PM")
}
