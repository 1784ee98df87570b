// Package realtimestore holds the double-buffered, lock-free Real-Time
// Store: parsed GTFS-realtime TripUpdates indexed for the reconciler,
// swapped atomically whenever a refresh completes so readers never
// block behind a parse.
package realtimestore

import (
	"fmt"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/transitproc/gtfsproc/schedule"
)

// ScheduleRelationship mirrors GTFS-realtime's StopTimeUpdate enum.
type ScheduleRelationship int

const (
	RelationshipScheduled ScheduleRelationship = iota
	RelationshipSkipped
	RelationshipNoData
)

// StopTimeUpdate is one predicted stop event from a TripUpdate.
type StopTimeUpdate struct {
	StopID         string
	StopSequence   uint32
	ArrivalIsSet   bool
	ArrivalTime    time.Time
	ArrivalDelay   int32
	DepartureIsSet bool
	DepartureTime  time.Time
	DepartureDelay int32
	Relationship   ScheduleRelationship
}

// TripUpdate is the full set of realtime predictions for a single
// trip_id, in stop_sequence order as received.
type TripUpdate struct {
	TripID    string
	RouteID   string
	StartDate string
	Added     bool
	Cancelled bool
	VehicleID string
	Updates   []StopTimeUpdate
}

// Snapshot is one parsed, immutable realtime feed: all the state the
// reconciler needs, built fresh on every refresh and never mutated
// after construction.
type Snapshot struct {
	Timestamp uint64
	RetrievedAt time.Time

	Trips map[string]*TripUpdate

	NumScheduledTrips   int
	NumAddedTrips       int
	NumUnscheduledTrips int
	NumCanceledTrips    int
	NumDuplicatedTrips  int

	// DuplicateTripIDs lists trip-ids that appeared in more than one
	// FeedEntity across the merged feeds. The first entity seen for a
	// trip-id wins and is what Trips holds; later ones are dropped but
	// recorded here so RPS can report them instead of silently
	// overwriting.
	DuplicateTripIDs []string

	// Mismatch lists, per route-id, active trips whose real-time stop
	// sequences or stop-ids are absent from the static trip definition.
	// Populated by BuildMismatchOrphans once a schedule.Store is
	// available, not by Parse itself.
	Mismatch map[string][]string

	// Orphans lists trips carrying no usable route-id: neither an
	// explicit route-id on the TripDescriptor nor a resolvable static
	// trip to borrow one from.
	Orphans []string
}

// Parse decodes one or more GTFS-realtime FeedMessage protobufs (as
// might be fetched from several independently-updating endpoints)
// into a single merged Snapshot.
func Parse(feeds [][]byte) (*Snapshot, error) {
	snap := &Snapshot{Trips: map[string]*TripUpdate{}}

	for _, feed := range feeds {
		f := &gtfsproto.FeedMessage{}
		if err := proto.Unmarshal(feed, f); err != nil {
			return nil, fmt.Errorf("realtimestore: unmarshaling protobuf: %w", err)
		}

		header := f.GetHeader()
		version := header.GetGtfsRealtimeVersion()
		if version != "2.0" && version != "1.0" {
			return nil, fmt.Errorf("realtimestore: gtfs-realtime version %q not supported", version)
		}
		if header.GetIncrementality() != gtfsproto.FeedHeader_FULL_DATASET {
			return nil, fmt.Errorf("realtimestore: incrementality %s not supported", header.GetIncrementality())
		}
		snap.Timestamp = header.GetTimestamp()

		if err := processEntities(snap, f.GetEntity()); err != nil {
			return nil, fmt.Errorf("realtimestore: processing entities: %w", err)
		}
	}

	snap.RetrievedAt = time.Unix(int64(snap.Timestamp), 0).UTC()
	return snap, nil
}

func processEntities(snap *Snapshot, entities []*gtfsproto.FeedEntity) error {
	for _, entity := range entities {
		if entity.TripUpdate == nil {
			continue
		}
		trip := entity.TripUpdate.Trip
		if trip == nil {
			return fmt.Errorf("trip_update missing trip descriptor")
		}
		tripID := trip.GetTripId()
		if tripID == "" {
			// (route_id, direction_id, start_time, start_date)
			// addressing is not supported; frequency-based and
			// dataset-added trips fall here too.
			continue
		}

		// First-wins on a repeated trip-id (e.g. the same trip
		// reported by two merged realtime endpoints): keep the
		// original placement and record the repeat instead of
		// silently overwriting it.
		if _, dup := snap.Trips[tripID]; dup {
			snap.DuplicateTripIDs = append(snap.DuplicateTripIDs, tripID)
			continue
		}

		tu := &TripUpdate{TripID: tripID, RouteID: trip.GetRouteId(), StartDate: trip.GetStartDate()}
		snap.Trips[tripID] = tu
		if entity.TripUpdate.Vehicle != nil {
			tu.VehicleID = entity.TripUpdate.Vehicle.GetId()
		}

		switch trip.GetScheduleRelationship() {
		case gtfsproto.TripDescriptor_SCHEDULED:
			for _, u := range entity.TripUpdate.GetStopTimeUpdate() {
				stu, err := convertStopTimeUpdate(u)
				if err != nil {
					return err
				}
				tu.Updates = append(tu.Updates, stu)
			}
			snap.NumScheduledTrips++

		case gtfsproto.TripDescriptor_ADDED:
			tu.Added = true
			for _, u := range entity.TripUpdate.GetStopTimeUpdate() {
				stu, err := convertStopTimeUpdate(u)
				if err != nil {
					return err
				}
				tu.Updates = append(tu.Updates, stu)
			}
			snap.NumAddedTrips++

		case gtfsproto.TripDescriptor_UNSCHEDULED:
			snap.NumUnscheduledTrips++

		case gtfsproto.TripDescriptor_CANCELED:
			tu.Cancelled = true
			snap.NumCanceledTrips++

		case gtfsproto.TripDescriptor_DUPLICATED:
			snap.NumDuplicatedTrips++
		}
	}
	return nil
}

func convertStopTimeUpdate(u *gtfsproto.TripUpdate_StopTimeUpdate) (StopTimeUpdate, error) {
	var stu StopTimeUpdate
	stu.StopID = u.GetStopId()
	stu.StopSequence = uint32(u.GetStopSequence())

	if u.Arrival != nil {
		stu.ArrivalIsSet = true
		stu.ArrivalDelay = u.GetArrival().GetDelay()
		if t := u.GetArrival().GetTime(); t != 0 {
			stu.ArrivalTime = time.Unix(t, 0).UTC()
		}
	}
	if u.Departure != nil {
		stu.DepartureIsSet = true
		stu.DepartureDelay = u.GetDeparture().GetDelay()
		if t := u.GetDeparture().GetTime(); t != 0 {
			stu.DepartureTime = time.Unix(t, 0).UTC()
		}
	}

	if stu.StopID == "" && stu.StopSequence == 0 {
		return stu, fmt.Errorf("stop_time_update missing both stop_id and stop_sequence")
	}

	switch u.GetScheduleRelationship() {
	case gtfsproto.TripUpdate_StopTimeUpdate_SCHEDULED:
		stu.Relationship = RelationshipScheduled
	case gtfsproto.TripUpdate_StopTimeUpdate_SKIPPED:
		stu.Relationship = RelationshipSkipped
	case gtfsproto.TripUpdate_StopTimeUpdate_NO_DATA:
		stu.Relationship = RelationshipNoData
	}

	return stu, nil
}

// BuildMismatchOrphans compares every non-added, non-cancelled trip
// update's declared stop-sequences/stop-ids against the static trip's
// stop-times and records the construction-time mismatch and orphan
// indices (spec's Real-Time Store construction steps 4-5). It runs as
// a second pass over an already-parsed Snapshot because Parse itself
// has no static schedule to compare against.
func BuildMismatchOrphans(snap *Snapshot, static *schedule.Store) {
	snap.Mismatch = map[string][]string{}
	snap.Orphans = nil

	for tripID, tu := range snap.Trips {
		if tu.Added || tu.Cancelled {
			continue
		}

		trip, stopTimes, ok := static.Trip(tripID)
		routeID := tu.RouteID
		if !ok {
			if routeID == "" {
				snap.Orphans = append(snap.Orphans, tripID)
			}
			continue
		}
		if routeID == "" {
			routeID = trip.RouteID
		}

		stopIDBySeq := make(map[uint32]string, len(stopTimes))
		knownStopID := make(map[string]bool, len(stopTimes))
		for _, st := range stopTimes {
			stopIDBySeq[st.StopSequence] = st.StopID
			knownStopID[st.StopID] = true
		}

		for _, u := range tu.Updates {
			mismatched := false
			if u.StopSequence != 0 {
				stopID, seqOK := stopIDBySeq[u.StopSequence]
				if !seqOK || (u.StopID != "" && u.StopID != stopID) {
					mismatched = true
				}
			} else if u.StopID != "" && !knownStopID[u.StopID] {
				mismatched = true
			}
			if mismatched {
				snap.Mismatch[routeID] = append(snap.Mismatch[routeID], tripID)
				break
			}
		}
	}
}
