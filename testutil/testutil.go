package testutil

// Helpers for building schedule snapshots and realtime feeds in
// tests.

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"railwatch.dev/railwatch/schedule"
)

// Fills in blank versions of the required tables so tests only need
// to spell out what they care about.
func fillDefaults(files map[string][]string) {
	if files["stops.txt"] == nil {
		files["stops.txt"] = []string{"stop_id,stop_name"}
	}
	if files["trips.txt"] == nil {
		files["trips.txt"] = []string{"trip_id,service_id"}
	}
	if files["stop_times.txt"] == nil {
		files["stop_times.txt"] = []string{"trip_id,stop_id,stop_sequence,arrival_time,departure_time"}
	}
}

// Writes the given tables into a temp dir and returns its path.
func BuildScheduleDir(t testing.TB, files map[string][]string) string {
	fillDefaults(files)

	dir := t.TempDir()
	for filename, content := range files {
		err := os.WriteFile(filepath.Join(dir, filename), []byte(strings.Join(content, "\n")), 0644)
		require.NoError(t, err)
	}

	return dir
}

// Builds an Index directly from the given tables.
func LoadSchedule(t testing.TB, files map[string][]string) *schedule.Index {
	idx, err := schedule.Load(BuildScheduleDir(t, files))
	require.NoError(t, err)
	return idx
}

// Zips the given tables, for snapshot manager tests.
func BuildScheduleZip(t testing.TB, files map[string][]string) []byte {
	fillDefaults(files)

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// One stop's delay within a feed trip update. Nil means the event
// carries no delay field.
type StopDelay struct {
	StopID    string
	Departure *int
	Arrival   *int
}

func Seconds(s int) *int {
	return &s
}

// Serializes a trip-update feed message with the given delays.
func BuildFeed(t testing.TB, trips map[string][]StopDelay) []byte {
	msg := &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsproto.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(1700000000),
		},
	}

	for tripID, stops := range trips {
		tu := &gtfsproto.TripUpdate{
			Trip: &gtfsproto.TripDescriptor{TripId: proto.String(tripID)},
		}
		for _, stop := range stops {
			stu := &gtfsproto.TripUpdate_StopTimeUpdate{
				StopId: proto.String(stop.StopID),
			}
			if stop.Departure != nil {
				stu.Departure = &gtfsproto.TripUpdate_StopTimeEvent{
					Delay: proto.Int32(int32(*stop.Departure)),
				}
			}
			if stop.Arrival != nil {
				stu.Arrival = &gtfsproto.TripUpdate_StopTimeEvent{
					Delay: proto.Int32(int32(*stop.Arrival)),
				}
			}
			tu.StopTimeUpdate = append(tu.StopTimeUpdate, stu)
		}
		msg.Entity = append(msg.Entity, &gtfsproto.FeedEntity{
			Id:         proto.String(tripID),
			TripUpdate: tu,
		})
	}

	data, err := proto.Marshal(msg)
	require.NoError(t, err)

	return data
}
