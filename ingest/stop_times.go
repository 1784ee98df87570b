package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/transitproc/gtfsproc/model"
	"github.com/transitproc/gtfsproc/timeutil"
)

type stopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	Headsign      string `csv:"stop_headsign"`
	ShapeDistance string `csv:"shape_dist_traveled"`
	PickupType    int8   `csv:"pickup_type"`
	DropoffType   int8   `csv:"drop_off_type"`
}

// parseStopTimes reads stop_times.txt into feed.StopTimes. Either or
// both of arrival_time/departure_time may be blank for an
// intermediate stop; that stop is marked Interpolated and left for
// schedule.Build to fill in from its neighbors. A malformed row
// (unknown trip_id/stop_id, unparsable time or shape distance,
// duplicate stop_sequence within a trip) is logged and skipped rather
// than aborting the whole load.
func parseStopTimes(log *slog.Logger, feed *RawFeed, r io.Reader, trips, stops map[string]bool) error {
	stopSeq := map[string][]uint32{}
	i := -1

	err := gocsv.UnmarshalToCallbackWithError(r, func(row *stopTimeCSV) error {
		i++
		if !trips[row.TripID] {
			log.Warn("skipping stop_time with unknown trip_id", "trip_id", row.TripID, "row", i+1)
			return nil
		}
		if row.StopID == "" {
			log.Warn("skipping stop_time with no stop_id", "trip_id", row.TripID, "row", i+1)
			return nil
		}
		if !stops[row.StopID] {
			log.Warn("skipping stop_time with unknown stop_id", "trip_id", row.TripID, "stop_id", row.StopID, "row", i+1)
			return nil
		}

		arrival, err := timeutil.OffsetFromHHMMSS(row.ArrivalTime)
		if err != nil {
			log.Warn("skipping stop_time with unparsable arrival_time", "trip_id", row.TripID, "row", i+1, "error", err)
			return nil
		}
		departure, err := timeutil.OffsetFromHHMMSS(row.DepartureTime)
		if err != nil {
			log.Warn("skipping stop_time with unparsable departure_time", "trip_id", row.TripID, "row", i+1, "error", err)
			return nil
		}

		interpolated := arrival == timeutil.NoTime || departure == timeutil.NoTime
		if interpolated && arrival == timeutil.NoTime && departure == timeutil.NoTime {
			log.Debug("stop_time has neither arrival nor departure, will interpolate", "trip_id", row.TripID, "stop_sequence", row.StopSequence)
		}
		if arrival == timeutil.NoTime {
			arrival = departure
		}
		if departure == timeutil.NoTime {
			departure = arrival
		}

		var shapeDist float64
		var hasShapeDist bool
		if row.ShapeDistance != "" {
			shapeDist, err = strconv.ParseFloat(row.ShapeDistance, 64)
			if err != nil {
				log.Warn("skipping stop_time with unparsable shape_dist_traveled", "trip_id", row.TripID, "row", i+1, "error", err)
				return nil
			}
			hasShapeDist = true
		}

		stopSeq[row.TripID] = append(stopSeq[row.TripID], row.StopSequence)

		feed.StopTimes = append(feed.StopTimes, model.StopTime{
			TripID:        row.TripID,
			StopSequence:  row.StopSequence,
			StopID:        row.StopID,
			Arrival:       arrival,
			Departure:     departure,
			PickupType:    model.PickupDropoffType(row.PickupType),
			DropoffType:   model.PickupDropoffType(row.DropoffType),
			Headsign:      row.Headsign,
			ShapeDistance: shapeDist,
			HasShapeDist:  hasShapeDist,
			Interpolated:  interpolated,
		})
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling stop_times")
	}

	dup := map[string]map[uint32]bool{}
	for tripID, seq := range stopSeq {
		seen := map[uint32]bool{}
		for _, s := range seq {
			if seen[s] {
				log.Warn("duplicate stop_sequence within trip, dropping later occurrence", "trip_id", tripID, "stop_sequence", s)
				if dup[tripID] == nil {
					dup[tripID] = map[uint32]bool{}
				}
				dup[tripID][s] = true
				continue
			}
			seen[s] = true
		}
	}
	if len(dup) > 0 {
		kept := feed.StopTimes[:0]
		seenAgain := map[string]map[uint32]bool{}
		for _, st := range feed.StopTimes {
			if dup[st.TripID] != nil && dup[st.TripID][st.StopSequence] {
				if seenAgain[st.TripID] == nil {
					seenAgain[st.TripID] = map[uint32]bool{}
				}
				if seenAgain[st.TripID][st.StopSequence] {
					continue
				}
				seenAgain[st.TripID][st.StopSequence] = true
			}
			kept = append(kept, st)
		}
		feed.StopTimes = kept
	}

	sort.SliceStable(feed.StopTimes, func(i, j int) bool {
		cmp := strings.Compare(feed.StopTimes[i].TripID, feed.StopTimes[j].TripID)
		if cmp != 0 {
			return cmp < 0
		}
		return feed.StopTimes[i].StopSequence < feed.StopTimes[j].StopSequence
	})

	return nil
}
