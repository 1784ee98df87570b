// Package schedule builds and serves the in-memory Schedule Store: the
// queryable, read-only index over one static GTFS bundle that the
// reconciler and query handlers consult. It never touches a CSV row
// directly; package ingest has already normalized everything into
// model types.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/transitproc/gtfsproc/ingest"
	"github.com/transitproc/gtfsproc/model"
)

// tripRecord is a trip plus its stop_times, sorted by stop_sequence,
// with blank arrival/departure times interpolated when every stop of
// the trip carries a shape distance (left as NoTime otherwise).
type tripRecord struct {
	trip      model.Trip
	stopTimes []model.StopTime
}

// stopEvent indexes one (trip, stop_time) pair under its stop_id for
// fast "what serves this stop" lookups.
type stopEvent struct {
	tripID       string
	stopSequence uint32
}

// Store is the queryable, read-only GTFS static schedule. It is built
// once by Build and never mutated; a feed refresh builds a new Store
// and swaps the pointer held by the caller (mirroring the realtime
// store's double-buffer, but static feeds change far less often so a
// single atomic.Pointer suffices at the call site).
type Store struct {
	Metadata model.FeedMetadata
	Location *time.Location

	agencies map[string]model.Agency
	routes   map[string]model.Route
	stops    map[string]model.Stop
	trips    map[string]tripRecord

	calendars  map[string]model.Calendar
	exceptions map[string][]model.CalendarException

	stopEvents map[string][]stopEvent // stop_id -> events sorted by departure offset
	routeTrips map[string][]string    // route_id -> trip ids
	children   map[string][]string    // parent_station -> child stop ids

	maxDeparture int32 // latest departure offset seen across all stop_times
}

// Build indexes a parsed static bundle into a queryable Store.
func Build(feed *ingest.RawFeed) (*Store, error) {
	loc, err := time.LoadLocation(feed.Metadata.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: loading timezone %q: %w", feed.Metadata.Timezone, err)
	}

	s := &Store{
		Metadata:   feed.Metadata,
		Location:   loc,
		agencies:   map[string]model.Agency{},
		routes:     map[string]model.Route{},
		stops:      map[string]model.Stop{},
		trips:      map[string]tripRecord{},
		calendars:  map[string]model.Calendar{},
		exceptions: map[string][]model.CalendarException{},
		stopEvents: map[string][]stopEvent{},
		routeTrips: map[string][]string{},
		children:   map[string][]string{},
	}

	for _, a := range feed.Agencies {
		s.agencies[a.ID] = a
	}
	for _, r := range feed.Routes {
		s.routes[r.ID] = r
	}
	for _, st := range feed.Stops {
		s.stops[st.ID] = st
		if st.ParentStation != "" {
			s.children[st.ParentStation] = append(s.children[st.ParentStation], st.ID)
		}
	}
	for _, c := range feed.Calendars {
		s.calendars[c.ServiceID] = c
	}
	for _, e := range feed.Exceptions {
		s.exceptions[e.ServiceID] = append(s.exceptions[e.ServiceID], e)
	}
	for _, t := range feed.Trips {
		s.trips[t.ID] = tripRecord{trip: t}
		s.routeTrips[t.RouteID] = append(s.routeTrips[t.RouteID], t.ID)
	}

	// feed.StopTimes is already sorted by (trip_id, stop_sequence) by
	// ingest.parseStopTimes.
	var curTrip string
	var curRec []model.StopTime
	flush := func() {
		if curTrip == "" {
			return
		}
		rec := s.trips[curTrip]
		rec.stopTimes = interpolate(curRec)
		s.trips[curTrip] = rec
		for _, st := range rec.stopTimes {
			s.stopEvents[st.StopID] = append(s.stopEvents[st.StopID], stopEvent{
				tripID:       curTrip,
				stopSequence: st.StopSequence,
			})
			if st.Departure > s.maxDeparture {
				s.maxDeparture = st.Departure
			}
			if st.Arrival > s.maxDeparture {
				s.maxDeparture = st.Arrival
			}
		}
	}
	for _, st := range feed.StopTimes {
		if st.TripID != curTrip {
			flush()
			curTrip = st.TripID
			curRec = nil
		}
		curRec = append(curRec, st)
	}
	flush()

	for stopID, events := range s.stopEvents {
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := s.trips[events[i].tripID], s.trips[events[j].tripID]
			di := departureAt(ti, events[i].stopSequence)
			dj := departureAt(tj, events[j].stopSequence)
			return di < dj
		})
		s.stopEvents[stopID] = events
	}

	return s, nil
}

// departureAt returns the stop's sort-time: the first non-NO_TIME
// arrival or departure at stop-sequence seq or any later sequence
// within the trip. A stop_time's own arrival/departure can legitimately
// be NO_TIME (an untimed intermediate stop that didn't interpolate),
// so the exact-match offset can't be returned directly without risking
// a NO_TIME sort-time, which would break non-decreasing sort order.
func departureAt(t tripRecord, seq uint32) int32 {
	for _, st := range t.stopTimes {
		if st.StopSequence < seq {
			continue
		}
		if st.Departure != model.NoTime {
			return st.Departure
		}
		if st.Arrival != model.NoTime {
			return st.Arrival
		}
	}
	return 0
}

// interpolate fills blank arrival/departure offsets on intermediate
// stop_times by linear interpolation in shape_dist_traveled between
// the two nearest timed neighbors, but only for trips where every
// stop_time carries a shape distance: without full coverage there is
// no principled way to place an intermediate stop in time, so the
// Interpolated flag set by ingest is cleared back off and the NO_TIME
// sentinel is left in place.
func interpolate(stopTimes []model.StopTime) []model.StopTime {
	full := true
	for _, st := range stopTimes {
		if !st.HasShapeDist {
			full = false
			break
		}
	}
	if !full {
		for i := range stopTimes {
			stopTimes[i].Interpolated = false
		}
		return stopTimes
	}

	n := len(stopTimes)
	i := 0
	for i < n {
		if !stopTimes[i].Interpolated {
			i++
			continue
		}
		start := i - 1
		j := i
		for j < n && stopTimes[j].Interpolated {
			j++
		}
		if start < 0 || j >= n {
			i = j
			continue
		}
		fromTime := stopTimes[start].Departure
		toTime := stopTimes[j].Arrival
		fromDist := stopTimes[start].ShapeDistance
		span := stopTimes[j].ShapeDistance - fromDist
		for k := start + 1; k < j; k++ {
			var frac float64
			if span > 0 {
				frac = (stopTimes[k].ShapeDistance - fromDist) / span
			}
			t := fromTime + int32(frac*float64(toTime-fromTime))
			stopTimes[k].Arrival = t
			stopTimes[k].Departure = t
		}
		i = j
	}
	return stopTimes
}

// RunningServices returns the set of service_ids active on the given
// GTFS "YYYYMMDD" date: calendar.txt's weekday bitmap intersected with
// the service's validity window, with calendar_dates.txt exceptions
// applied afterward (added services win, removed services win,
// matching the GTFS precedence rule).
func (s *Store) RunningServices(date string) (map[string]bool, error) {
	d, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid date %q: %w", date, err)
	}

	active := map[string]bool{}
	for _, c := range s.calendars {
		if c.Weekday&(1<<uint(d.Weekday())) == 0 {
			continue
		}
		if c.StartDate > date || c.EndDate < date {
			continue
		}
		active[c.ServiceID] = true
	}

	for serviceID, exs := range s.exceptions {
		for _, e := range exs {
			if e.Date != date {
				continue
			}
			switch e.Type {
			case model.ExceptionAdded:
				active[serviceID] = true
			case model.ExceptionRemoved:
				delete(active, serviceID)
			}
		}
	}

	return active, nil
}

func (s *Store) Agency(id string) (model.Agency, bool) {
	a, ok := s.agencies[id]
	return a, ok
}

// Agencies returns every agency in the feed, order unspecified.
func (s *Store) Agencies() []model.Agency {
	out := make([]model.Agency, 0, len(s.agencies))
	for _, a := range s.agencies {
		out = append(out, a)
	}
	return out
}

func (s *Store) Route(id string) (model.Route, bool) {
	r, ok := s.routes[id]
	return r, ok
}

// AllRoutes returns every route in the feed, order unspecified.
func (s *Store) AllRoutes() []model.Route {
	out := make([]model.Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	return out
}

func (s *Store) Stop(id string) (model.Stop, bool) {
	st, ok := s.stops[id]
	return st, ok
}

// AllStops returns every stop in the feed, order unspecified.
func (s *Store) AllStops() []model.Stop {
	out := make([]model.Stop, 0, len(s.stops))
	for _, st := range s.stops {
		out = append(out, st)
	}
	return out
}

func (s *Store) ChildStops(stationID string) []string {
	return s.children[stationID]
}

func (s *Store) Trip(id string) (model.Trip, []model.StopTime, bool) {
	rec, ok := s.trips[id]
	if !ok {
		return model.Trip{}, nil, false
	}
	return rec.trip, rec.stopTimes, true
}

func (s *Store) RouteTripIDs(routeID string) []string {
	return s.routeTrips[routeID]
}

// StopSequenceRange returns the minimum and maximum stop_sequence for
// a trip, used to detect "last stop" (not boardable) events.
func (s *Store) StopSequenceRange(tripID string) (min, max uint32, ok bool) {
	rec, found := s.trips[tripID]
	if !found || len(rec.stopTimes) == 0 {
		return 0, 0, false
	}
	min, max = rec.stopTimes[0].StopSequence, rec.stopTimes[0].StopSequence
	for _, st := range rec.stopTimes[1:] {
		if st.StopSequence < min {
			min = st.StopSequence
		}
		if st.StopSequence > max {
			max = st.StopSequence
		}
	}
	return min, max, true
}

// MaxDeparture is the latest departure offset across the whole feed,
// used by callers to bound how far into "tomorrow's" overflow trips a
// time-window query must scan.
func (s *Store) MaxDeparture() int32 {
	return s.maxDeparture
}

// StopTimesForStop returns, in ascending departure-time order, every
// (trip, stop_sequence) pair serving stopID, restricted to the
// service_ids in serviceIDs (typically the result of RunningServices
// for one calendar day).
func (s *Store) StopTimesForStop(stopID string, serviceIDs map[string]bool) []model.StopTime {
	var out []model.StopTime
	for _, ev := range s.stopEvents[stopID] {
		rec := s.trips[ev.tripID]
		if serviceIDs != nil && !serviceIDs[rec.trip.ServiceID] {
			continue
		}
		for _, st := range rec.stopTimes {
			if st.StopSequence == ev.stopSequence {
				out = append(out, st)
				break
			}
		}
	}
	return out
}
