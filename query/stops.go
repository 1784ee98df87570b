package query

import (
	"sort"

	"github.com/transitproc/gtfsproc/model"
	"github.com/transitproc/gtfsproc/schedule"
)

// StopInfo is the stop-summary shape shared across verbs.
type StopInfo struct {
	StopID        string  `json:"stop_id"`
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	ParentStation string  `json:"parent_station,omitempty"`
}

func stopInfo(s model.Stop) StopInfo {
	return StopInfo{StopID: s.ID, Name: s.Name, Lat: s.Lat, Lon: s.Lon, ParentStation: s.ParentStation}
}

// RouteTrips groups a stop's served trips by route, the shared payload
// shape for TSS/TSD.
type RouteTrips struct {
	RouteID string        `json:"route_id"`
	Trips   []TripSummary `json:"trips"`
}

// TSS: stop-id -> per-route trips serving it, any service date.
func (e *Engine) TSS(args string) (any, int) {
	return e.stopTrips(args, "")
}

// TSD: "day stop-id" -> same, filtered to the given service date.
func (e *Engine) TSD(args string) (any, int) {
	toks := fields(args)
	if len(toks) < 2 {
		return nil, ErrUnknownStop
	}
	return e.stopTrips(toks[1], toks[0])
}

func (e *Engine) stopTrips(stopArg, dayTok string) (any, int) {
	s := e.static()
	if s == nil || stopArg == "" {
		return nil, ErrUnknownStop
	}
	stopIDs := expandStops(s, splitStops(stopArg))
	if len(stopIDs) == 0 {
		return nil, ErrUnknownStop
	}
	for _, id := range stopIDs {
		if _, ok := s.Stop(id); !ok {
			return nil, ErrUnknownStop
		}
	}

	var services map[string]bool
	if dayTok != "" {
		date, err := dayToken(dayTok, e.Now(), s.Location)
		if err != nil {
			return nil, ErrUnknownStop
		}
		services, err = s.RunningServices(date)
		if err != nil {
			return nil, ErrUnknownStop
		}
	}

	byRoute := map[string][]TripSummary{}
	for _, stopID := range stopIDs {
		for _, st := range s.StopTimesForStop(stopID, services) {
			trip, _, ok := s.Trip(st.TripID)
			if !ok {
				continue
			}
			byRoute[trip.RouteID] = append(byRoute[trip.RouteID], TripSummary{
				TripID:    trip.ID,
				ServiceID: trip.ServiceID,
				Headsign:  firstNonEmptyQ(st.Headsign, trip.Headsign),
				ShortName: trip.ShortName,
			})
		}
	}
	out := make([]RouteTrips, 0, len(byRoute))
	for routeID, trips := range byRoute {
		out = append(out, RouteTrips{RouteID: routeID, Trips: trips})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteID < out[j].RouteID })
	return struct {
		StopID string       `json:"stop_id"`
		Routes []RouteTrips `json:"routes"`
	}{stopArg, out}, 0
}

// STA: stop-id -> stop details, its routes, and sibling stops sharing
// its parent station.
func (e *Engine) STA(args string) (any, int) {
	s := e.static()
	toks := fields(args)
	if s == nil || len(toks) == 0 {
		return nil, ErrUnknownStop2
	}
	stop, ok := s.Stop(toks[0])
	if !ok {
		return nil, ErrUnknownStop2
	}

	routeSet := map[string]bool{}
	for _, ev := range s.StopTimesForStop(toks[0], nil) {
		if trip, _, ok := s.Trip(ev.TripID); ok {
			routeSet[trip.RouteID] = true
		}
	}
	routes := make([]string, 0, len(routeSet))
	for id := range routeSet {
		routes = append(routes, id)
	}
	sort.Strings(routes)

	var siblings []StopInfo
	if stop.ParentStation != "" {
		for _, childID := range s.ChildStops(stop.ParentStation) {
			if childID == stop.ID {
				continue
			}
			if child, ok := s.Stop(childID); ok {
				siblings = append(siblings, stopInfo(child))
			}
		}
	}

	return struct {
		Stop     StopInfo   `json:"stop"`
		Routes   []string   `json:"route_ids"`
		Siblings []StopInfo `json:"sibling_stops"`
	}{stopInfo(stop), routes, siblings}, 0
}

// SNT has no arguments: every stop with zero scheduled trips.
func (e *Engine) SNT(args string) (any, int) {
	s := e.static()
	if s == nil {
		return struct {
			Stops []StopInfo `json:"stops"`
		}{}, 0
	}
	var out []StopInfo
	for _, stop := range allStops(s) {
		if len(s.StopTimesForStop(stop.ID, nil)) == 0 {
			out = append(out, stopInfo(stop))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StopID < out[j].StopID })
	return struct {
		Stops []StopInfo `json:"stops"`
	}{out}, 0
}

func allStops(s *schedule.Store) []model.Stop {
	return s.AllStops()
}

func firstNonEmptyQ(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
