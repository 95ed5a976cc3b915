package feed

import (
	"context"
	"fmt"
	"math"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"railwatch.dev/railwatch/downloader"
	"railwatch.dev/railwatch/model"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxSize = 1 << 20 // 1 MB
)

// Fetcher retrieves and decodes the realtime trip-update feed. A
// fetch or decode failure is transient: the caller treats it as a
// single failed check and tries again next cycle.
type Fetcher struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	MaxSize int

	Downloader downloader.Downloader
}

func NewFetcher(url string) *Fetcher {
	return &Fetcher{
		URL:        url,
		Timeout:    DefaultTimeout,
		MaxSize:    DefaultMaxSize,
		Downloader: downloader.NewMemory(),
	}
}

func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	body, err := f.Downloader.Get(ctx, f.URL, f.Headers, downloader.GetOptions{
		Cache:   false,
		Timeout: f.Timeout,
		MaxSize: f.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading feed: %w", err)
	}

	return Decode(body)
}

// One stop's realtime update within a trip.
type StopUpdate struct {
	StopID            string
	HasDepartureDelay bool
	DepartureDelay    int
	HasArrivalDelay   bool
	ArrivalDelay      int
}

// A decoded realtime feed message, indexed by trip.
type Snapshot struct {
	Timestamp     uint64
	updatesByTrip map[string][]StopUpdate
}

// Decodes a binary trip-update feed message.
func Decode(body []byte) (*Snapshot, error) {
	msg := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	snap := &Snapshot{
		Timestamp:     msg.GetHeader().GetTimestamp(),
		updatesByTrip: map[string][]StopUpdate{},
	}

	for _, entity := range msg.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}

		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		updates := snap.updatesByTrip[tripID]
		for _, stu := range tu.GetStopTimeUpdate() {
			update := StopUpdate{StopID: stu.GetStopId()}
			if stu.Departure != nil {
				update.HasDepartureDelay = true
				update.DepartureDelay = int(stu.GetDeparture().GetDelay())
			}
			if stu.Arrival != nil {
				update.HasArrivalDelay = true
				update.ArrivalDelay = int(stu.GetArrival().GetDelay())
			}
			updates = append(updates, update)
		}
		snap.updatesByTrip[tripID] = updates
	}

	return snap, nil
}

// Looks up the delay for a trip at a stop.
//
// A trip present in the feed without an update for the stop counts
// as on time ({Found: true, Seconds: 0}): the trip is known, no
// deviation was reported. Only a trip absent from the feed entirely
// yields Found false.
func (s *Snapshot) DelayFor(tripID, stopID string) model.Delay {
	updates, found := s.updatesByTrip[tripID]
	if !found {
		return model.Delay{}
	}

	for _, update := range updates {
		if update.StopID != stopID {
			continue
		}
		if update.HasDepartureDelay {
			return model.Delay{Found: true, Seconds: update.DepartureDelay}
		}
		if update.HasArrivalDelay {
			return model.Delay{Found: true, Seconds: update.ArrivalDelay}
		}
		break
	}

	return model.Delay{Found: true}
}

// Renders a delay in seconds as rider-facing text: "on time", "3
// minutes late", "2 minutes early".
func FormatDelay(seconds int) string {
	abs := seconds
	if abs < 0 {
		abs = -abs
	}

	if abs < 60 {
		return "on time"
	}

	minutes := int(math.Round(float64(abs) / 60))
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}

	direction := "late"
	if seconds < 0 {
		direction = "early"
	}

	return fmt.Sprintf("%d %s %s", minutes, unit, direction)
}
