package reconcile

import (
	"sort"
	"time"

	"github.com/transitproc/gtfsproc/model"
	"github.com/transitproc/gtfsproc/realtimestore"
	"github.com/transitproc/gtfsproc/schedule"
	"github.com/transitproc/gtfsproc/timeutil"
)

// Reconciler answers "what's coming to this stop" queries by merging
// one schedule.Store with one realtimestore.Snapshot (which may be
// nil, meaning no realtime feed is configured or none has loaded
// yet).
type Reconciler struct {
	Static   *schedule.Store
	Realtime *realtimestore.Snapshot

	// DatePolicy governs how strictly a realtime TripUpdate must
	// correspond to the service date being reconciled.
	DatePolicy realtimestore.DateMatchPolicy

	// ArriveThreshold is how close (in time) a trip must be to a
	// stop before it is reported StatusArrive instead of
	// StatusRunning.
	ArriveThreshold time.Duration

	// LoosenStopMatch forces stop_id matching between realtime
	// updates and static stop_times even when stop_sequence is
	// present on both, for feeds known to number sequences
	// differently than the static schedule.
	LoosenStopMatch bool
}

func New(static *schedule.Store, realtime *realtimestore.Snapshot) *Reconciler {
	return &Reconciler{
		Static:          static,
		Realtime:        realtime,
		ArriveThreshold: 30 * time.Second,
	}
}

// StopRecord is the reconciled view of a single stop: its upcoming
// service split into routes, already filtered and sorted by the
// criteria in Query.
type StopRecord struct {
	StopID string
	Routes []RouteStopRecords
}

// Query describes a single reconciliation request: one or more
// stop_ids observed "as of" Now, looking ahead LookaheadMinutes
// (0 means unbounded, capped by NumTrips instead).
type Query struct {
	StopIDs          []string
	Now              time.Time
	LookaheadMinutes int32
	NumTripsPerRoute int
	RouteID          string // "" means all routes
	DirectionID      int8   // -1 means both directions
	HideTerminating  bool
}

// Reconcile computes StopRecords for every requested stop_id.
func (r *Reconciler) Reconcile(q Query) []StopRecord {
	window := timeutil.ComputeServiceWindow(q.Now.In(r.Static.Location))

	var lookahead time.Time
	if q.LookaheadMinutes > 0 {
		lookahead = q.Now.Add(time.Duration(q.LookaheadMinutes) * time.Minute)
	}

	out := make([]StopRecord, 0, len(q.StopIDs))
	for _, stopID := range q.StopIDs {
		out = append(out, r.reconcileStop(stopID, q, window, lookahead))
	}
	return out
}

func (r *Reconciler) reconcileStop(stopID string, q Query, window timeutil.ServiceWindow, lookahead time.Time) StopRecord {
	byRoute := map[string][]StopTripRecord{}

	for _, date := range []string{window.Yesterday, window.Today, window.Tomorrow} {
		services, err := r.Static.RunningServices(date)
		if err != nil {
			continue
		}
		events := r.Static.StopTimesForStop(stopID, services)
		for _, st := range events {
			trip, _, ok := r.Static.Trip(st.TripID)
			if !ok {
				continue
			}
			if q.RouteID != "" && trip.RouteID != q.RouteID {
				continue
			}

			rec := r.buildRecord(date, trip, st, q.Now)
			rec.Status = r.invalidate(rec, q.Now, lookahead)
			if rec.Status == StatusIrrelevant {
				continue
			}
			if q.HideTerminating && rec.EndOfTrip {
				continue
			}

			byRoute[trip.RouteID] = append(byRoute[trip.RouteID], rec)
		}
	}

	r.addSupplementalTrips(stopID, q, byRoute)

	routes := make([]RouteStopRecords, 0, len(byRoute))
	for routeID, trips := range byRoute {
		sort.SliceStable(trips, func(i, j int) bool {
			return trips[i].bestTime().Before(trips[j].bestTime())
		})
		if q.NumTripsPerRoute > 0 && len(trips) > q.NumTripsPerRoute {
			trips = trips[:q.NumTripsPerRoute]
		}
		rt, _ := r.Static.Route(routeID)
		routes = append(routes, RouteStopRecords{
			RouteID:   routeID,
			ShortName: rt.ShortName,
			LongName:  rt.LongName,
			Color:     rt.Color,
			TextColor: rt.TextColor,
			Trips:     trips,
		})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].RouteID < routes[j].RouteID })

	return StopRecord{StopID: stopID, Routes: routes}
}

func (rec *StopTripRecord) bestTime() time.Time {
	if !rec.PredictedDeparture.IsZero() {
		return rec.PredictedDeparture
	}
	if !rec.PredictedArrival.IsZero() {
		return rec.PredictedArrival
	}
	if !rec.ScheduledDeparture.IsZero() {
		return rec.ScheduledDeparture
	}
	return rec.ScheduledArrival
}

func (r *Reconciler) buildRecord(date string, trip model.Trip, st model.StopTime, now time.Time) StopTripRecord {
	loc := r.Static.Location

	schArr, _ := timeutil.ToInstant(date, st.Arrival, loc)
	schDep, _ := timeutil.ToInstant(date, st.Departure, loc)

	minSeq, maxSeq, _ := r.Static.StopSequenceRange(trip.ID)

	rec := StopTripRecord{
		TripID:             trip.ID,
		RouteID:            trip.RouteID,
		ServiceDate:        date,
		Status:             StatusSchedule,
		StopStatus:         StopStatusSchedule,
		ScheduledArrival:   schArr,
		ScheduledDeparture: schDep,
		Headsign:           firstNonEmpty(st.Headsign, trip.Headsign),
		PickupType:         int8(st.PickupType),
		DropoffType:        int8(st.DropoffType),
		StopSequence:       st.StopSequence,
		StopID:             st.StopID,
		BeginningOfTrip:    st.StopSequence == minSeq,
		EndOfTrip:          st.StopSequence == maxSeq,
	}

	dateOK := r.Realtime != nil && r.Realtime.Exists(trip.ID) &&
		realtimestore.DateMatches(r.DatePolicy, r.Realtime.Trips[trip.ID].StartDate, date, now.In(loc).Format("20060102"))

	if dateOK {
		rec.RealTimeAvailable = true
		rec.VehicleID = r.Realtime.Trips[trip.ID].VehicleID

		if r.Realtime.IsCancelled(trip.ID) {
			rec.Status = StatusCancel
			return rec
		}
		if r.Realtime.SkipsStop(trip.ID, st.StopID, st.StopSequence, r.LoosenStopMatch) {
			rec.Status = StatusSkip
			return rec
		}

		if ev, ok := r.Realtime.StopActualTime(trip.ID, st.StopID, st.StopSequence, r.LoosenStopMatch); ok {
			rec.RealTimeOffsetSec = int64(ev.DepartureDelay)
			if !schArr.IsZero() {
				rec.PredictedArrival = schArr.Add(time.Duration(ev.ArrivalDelay) * time.Second)
			}
			if !schDep.IsZero() {
				rec.PredictedDeparture = schDep.Add(time.Duration(ev.DepartureDelay) * time.Second)
			}
			rec.StopStatus = StopStatusFull
		}

		rec.Status = r.statusFromTime(rec, now)
	} else {
		rec.Status = r.statusFromTime(rec, now)
	}

	primary := rec.bestTime()
	if !primary.IsZero() {
		rec.WaitTimeSec = int64(primary.Sub(now).Seconds())
	}

	return rec
}

// statusFromTime classifies a record per §4.4 step 2(c): ARRIVE within
// ArriveThreshold (30s from New) of a predicted arrival, DEPART within [-30s, 0s] of a predicted
// departure, BOARD while now sits between predicted arrival and
// departure, otherwise RUNNING when realtime data exists at all.
func (r *Reconciler) statusFromTime(rec StopTripRecord, now time.Time) TripStatus {
	arr, dep := rec.ScheduledArrival, rec.ScheduledDeparture
	if !rec.PredictedArrival.IsZero() {
		arr = rec.PredictedArrival
	}
	if !rec.PredictedDeparture.IsZero() {
		dep = rec.PredictedDeparture
	}

	if arr.IsZero() && dep.IsZero() {
		if !rec.ScheduledDeparture.IsZero() && now.After(rec.ScheduledDeparture) {
			return StatusIrrelevant
		}
		return StatusNoSchedule
	}

	if rec.RealTimeAvailable {
		switch {
		case !arr.IsZero() && now.Before(arr) && arr.Sub(now) <= r.ArriveThreshold:
			return StatusArrive
		case !dep.IsZero() && !now.Before(dep) && now.Sub(dep) <= 30*time.Second:
			return StatusDepart
		case !arr.IsZero() && !dep.IsZero() && !now.Before(arr) && now.Before(dep):
			return StatusBoard
		case !dep.IsZero() && now.Sub(dep) > 30*time.Second:
			// already departed this stop well in the past: nothing
			// left to report here (§8 boundary property 11).
			return StatusIrrelevant
		default:
			return StatusRunning
		}
	}

	if !rec.ScheduledDeparture.IsZero() && now.After(rec.ScheduledDeparture) {
		return StatusIrrelevant
	}
	return StatusSchedule
}

// invalidate applies §4.4 step 3's promotion-to-IRRELEVANT rules. It
// runs after statusFromTime so CANCEL/SKIP statuses set earlier in
// buildRecord are visible here.
func (r *Reconciler) invalidate(rec StopTripRecord, now, lookahead time.Time) TripStatus {
	relevant := rec.bestTime()
	beyondLookahead := !lookahead.IsZero() && !relevant.IsZero() && relevant.After(lookahead)

	switch rec.Status {
	case StatusCancel, StatusSkip:
		if !rec.ScheduledArrival.IsZero() || !rec.ScheduledDeparture.IsZero() {
			sched := rec.ScheduledDeparture
			if sched.IsZero() {
				sched = rec.ScheduledArrival
			}
			if now.Sub(sched) > 120*time.Second || beyondLookahead {
				return StatusIrrelevant
			}
		}
		return rec.Status
	case StatusSchedule, StatusNoSchedule:
		if !relevant.IsZero() && relevant.Before(now) {
			return StatusIrrelevant
		}
		if beyondLookahead {
			return StatusIrrelevant
		}
		return rec.Status
	case StatusIrrelevant:
		return StatusIrrelevant
	default: // ARRIVE, BOARD, DEPART, RUNNING: realtime-running records
		if !relevant.IsZero() && now.Sub(relevant) > 60*time.Second {
			return StatusIrrelevant
		}
		if beyondLookahead {
			return StatusIrrelevant
		}
		return rec.Status
	}
}

// addSupplementalTrips surfaces realtime TripUpdates for stopID that
// have no corresponding static stop_time at all (StopStatusSupplemental):
// an added trip, or a trip whose realtime stop list names a stop the
// static schedule never listed for it.
func (r *Reconciler) addSupplementalTrips(stopID string, q Query, byRoute map[string][]StopTripRecord) {
	if r.Realtime == nil {
		return
	}
	for tripID, tu := range r.Realtime.Trips {
		// An Added trip has no static counterpart by definition, so it
		// is keyed by whatever route-id the realtime feed itself
		// carries on the TripDescriptor rather than a static lookup.
		routeID := tu.RouteID
		if trip, _, ok := r.Static.Trip(tripID); ok {
			routeID = trip.RouteID
		} else if routeID == "" {
			continue // no static trip and no route-id to key it by: orphaned, not supplemental
		}
		if q.RouteID != "" && routeID != q.RouteID {
			continue
		}
		for _, u := range tu.Updates {
			if u.StopID != stopID {
				continue
			}
			if hasStaticStopTime(r.Static, tripID, u.StopSequence) {
				continue
			}
			rec := StopTripRecord{
				TripID:       tripID,
				RouteID:      routeID,
				Status:       StatusRunning,
				StopStatus:   StopStatusSupplemental,
				StopID:       stopID,
				StopSequence: u.StopSequence,
			}
			if u.ArrivalIsSet {
				rec.PredictedArrival = u.ArrivalTime
			}
			if u.DepartureIsSet {
				rec.PredictedDeparture = u.DepartureTime
			}
			byRoute[routeID] = append(byRoute[routeID], rec)
		}
	}
}

func hasStaticStopTime(s *schedule.Store, tripID string, seq uint32) bool {
	_, stopTimes, ok := s.Trip(tripID)
	if !ok {
		return false
	}
	for _, st := range stopTimes {
		if st.StopSequence == seq {
			return true
		}
	}
	return false
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
