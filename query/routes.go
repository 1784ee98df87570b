package query

import (
	"sort"

	"github.com/transitproc/gtfsproc/model"
	"github.com/transitproc/gtfsproc/schedule"
)

// RouteInfo is the route-summary shape shared by RTE and SSR.
type RouteInfo struct {
	RouteID   string `json:"route_id"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
	Type      int    `json:"type"`
}

// RTE has no arguments and lists every route, sorted by id.
func (e *Engine) RTE(args string) (any, int) {
	s := e.static()
	if s == nil {
		return struct {
			Routes []RouteInfo `json:"routes"`
		}{}, 0
	}
	routes := make([]RouteInfo, 0)
	for _, r := range s.AllRoutes() {
		routes = append(routes, routeInfo(r))
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].RouteID < routes[j].RouteID })
	return struct {
		Routes []RouteInfo `json:"routes"`
	}{routes}, 0
}

func routeInfo(r model.Route) RouteInfo {
	return RouteInfo{
		RouteID:   r.ID,
		ShortName: r.ShortName,
		LongName:  r.LongName,
		Color:     r.Color,
		TextColor: r.TextColor,
		Type:      int(r.Type),
	}
}

// TripSummary is one trip on a route, independent of any stop query.
type TripSummary struct {
	TripID    string `json:"trip_id"`
	ServiceID string `json:"service_id"`
	Headsign  string `json:"headsign"`
	ShortName string `json:"short_name"`
}

// TSR: route-id -> every trip on the route.
func (e *Engine) TSR(args string) (any, int) {
	s := e.static()
	routeID := fields(args)
	if len(routeID) == 0 {
		return nil, ErrUnknownRoute
	}
	return tripsForRoute(s, routeID[0], "")
}

// TRD: "day route-id" -> trips on the route running that service date.
func (e *Engine) TRD(args string) (any, int) {
	s := e.static()
	toks := fields(args)
	if len(toks) < 2 {
		return nil, ErrUnknownRoute
	}
	day, err := dayToken(toks[0], e.Now(), s.Location)
	if err != nil {
		return nil, ErrUnknownRoute
	}
	return tripsForRoute(s, toks[1], day)
}

func tripsForRoute(s *schedule.Store, routeID, date string) (any, int) {
	if s == nil {
		return nil, ErrUnknownRoute
	}
	if _, ok := s.Route(routeID); !ok {
		return nil, ErrUnknownRoute
	}
	var services map[string]bool
	if date != "" {
		var err error
		services, err = s.RunningServices(date)
		if err != nil {
			return nil, ErrUnknownRoute
		}
	}
	var trips []TripSummary
	for _, tripID := range s.RouteTripIDs(routeID) {
		trip, _, ok := s.Trip(tripID)
		if !ok {
			continue
		}
		if services != nil && !services[trip.ServiceID] {
			continue
		}
		trips = append(trips, TripSummary{
			TripID:    trip.ID,
			ServiceID: trip.ServiceID,
			Headsign:  trip.Headsign,
			ShortName: trip.ShortName,
		})
	}
	return struct {
		RouteID string        `json:"route_id"`
		Trips   []TripSummary `json:"trips"`
	}{routeID, trips}, 0
}

// SSR: route-id -> every stop served by any trip on the route.
func (e *Engine) SSR(args string) (any, int) {
	s := e.static()
	toks := fields(args)
	if s == nil || len(toks) == 0 {
		return nil, ErrUnknownRoute2
	}
	routeID := toks[0]
	if _, ok := s.Route(routeID); !ok {
		return nil, ErrUnknownRoute2
	}

	seen := map[string]bool{}
	var stops []StopInfo
	for _, tripID := range s.RouteTripIDs(routeID) {
		_, stopTimes, ok := s.Trip(tripID)
		if !ok {
			continue
		}
		for _, st := range stopTimes {
			if seen[st.StopID] {
				continue
			}
			seen[st.StopID] = true
			if stop, ok := s.Stop(st.StopID); ok {
				stops = append(stops, stopInfo(stop))
			}
		}
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].StopID < stops[j].StopID })
	return struct {
		RouteID string     `json:"route_id"`
		Stops   []StopInfo `json:"stops"`
	}{routeID, stops}, 0
}
