package query

import (
	"sort"

	"github.com/transitproc/gtfsproc/reconcile"
)

// TripRecordInfo is one reconciled (trip, stop) record as surfaced to
// clients.
type TripRecordInfo struct {
	TripID            string `json:"trip_id"`
	RouteID           string `json:"route_id"`
	Headsign          string `json:"headsign"`
	Status            string `json:"status"`
	StopStatus        string `json:"stop_status"`
	ScheduledArrival  string `json:"scheduled_arrival,omitempty"`
	ScheduledDeparture string `json:"scheduled_departure,omitempty"`
	PredictedArrival  string `json:"predicted_arrival,omitempty"`
	PredictedDeparture string `json:"predicted_departure,omitempty"`
	WaitTimeSec       int64  `json:"wait_time_sec"`
	VehicleID         string `json:"vehicle_id,omitempty"`
	TripTerminates    bool   `json:"trip_terminates"`
}

func tripRecordInfo(rec reconcile.StopTripRecord, clock12Hour bool) TripRecordInfo {
	info := TripRecordInfo{
		TripID:         rec.TripID,
		RouteID:        rec.RouteID,
		Headsign:       rec.Headsign,
		Status:         statusName(rec.Status),
		StopStatus:     string(rec.StopStatus),
		WaitTimeSec:    rec.WaitTimeSec,
		VehicleID:      rec.VehicleID,
		TripTerminates: rec.EndOfTrip,
	}
	if !rec.ScheduledArrival.IsZero() {
		info.ScheduledArrival = formatMessageTime(rec.ScheduledArrival, clock12Hour)
	}
	if !rec.ScheduledDeparture.IsZero() {
		info.ScheduledDeparture = formatMessageTime(rec.ScheduledDeparture, clock12Hour)
	}
	if !rec.PredictedArrival.IsZero() {
		info.PredictedArrival = formatMessageTime(rec.PredictedArrival, clock12Hour)
	}
	if !rec.PredictedDeparture.IsZero() {
		info.PredictedDeparture = formatMessageTime(rec.PredictedDeparture, clock12Hour)
	}
	return info
}

func statusName(s reconcile.TripStatus) string {
	switch s {
	case reconcile.StatusSchedule:
		return "SCHEDULE"
	case reconcile.StatusNoSchedule:
		return "NOSCHEDULE"
	case reconcile.StatusIrrelevant:
		return "IRRELEVANT"
	case reconcile.StatusArrive:
		return "ARRIVE"
	case reconcile.StatusBoard:
		return "BOARD"
	case reconcile.StatusDepart:
		return "DEPART"
	case reconcile.StatusRunning:
		return "RUNNING"
	case reconcile.StatusSkip:
		return "SKIP"
	case reconcile.StatusCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// RouteRecords is one route's reconciled trip list.
type RouteRecords struct {
	RouteID   string           `json:"route_id"`
	ShortName string           `json:"short_name"`
	LongName  string           `json:"long_name"`
	Color     string           `json:"color"`
	TextColor string           `json:"text_color"`
	Trips     []TripRecordInfo `json:"trips"`
}

// NEX: "minutes stop-ids" -> upcoming service per route.
func (e *Engine) NEX(args string) (any, int) {
	routes, errCode := e.upcoming(args)
	if errCode != 0 {
		return nil, errCode
	}
	return struct {
		Routes []RouteRecords `json:"routes"`
	}{routes}, 0
}

// NCF: same query, flattened across routes into one sorted list.
func (e *Engine) NCF(args string) (any, int) {
	routes, errCode := e.upcoming(args)
	if errCode != 0 {
		return nil, errCode
	}
	var flat []TripRecordInfo
	for _, r := range routes {
		flat = append(flat, r.Trips...)
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].WaitTimeSec < flat[j].WaitTimeSec })
	return struct {
		Trips []TripRecordInfo `json:"trips"`
	}{flat}, 0
}

func (e *Engine) upcoming(args string) ([]RouteRecords, int) {
	s := e.static()
	toks := fields(args)
	if s == nil || len(toks) < 2 {
		return nil, ErrUnknownStop3
	}
	lookahead, err := lookaheadMinutes(toks[0])
	if err != nil {
		return nil, ErrUnknownStop3
	}
	stopIDs := expandStops(s, splitStops(toks[1]))
	if len(stopIDs) == 0 {
		return nil, ErrUnknownStop3
	}
	for _, id := range stopIDs {
		if _, ok := s.Stop(id); !ok {
			return nil, ErrUnknownStop3
		}
	}

	r := e.reconciler()
	perRoute := map[string]RouteRecords{}
	for _, stop := range r.Reconcile(reconcile.Query{
		StopIDs:          stopIDs,
		Now:              e.Now(),
		LookaheadMinutes: lookahead,
		NumTripsPerRoute: int(e.Config.NexTripsPerRoute),
		DirectionID:      -1,
		HideTerminating:  e.Config.HideTerminating,
	}) {
		for _, route := range stop.Routes {
			rr, ok := perRoute[route.RouteID]
			if !ok {
				rr = RouteRecords{RouteID: route.RouteID, ShortName: route.ShortName, LongName: route.LongName, Color: route.Color, TextColor: route.TextColor}
			}
			for _, t := range route.Trips {
				rr.Trips = append(rr.Trips, tripRecordInfo(t, e.Config.Clock12Hour))
			}
			perRoute[route.RouteID] = rr
		}
	}

	out := make([]RouteRecords, 0, len(perRoute))
	for _, rr := range perRoute {
		sort.SliceStable(rr.Trips, func(i, j int) bool { return rr.Trips[i].WaitTimeSec < rr.Trips[j].WaitTimeSec })
		out = append(out, rr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteID < out[j].RouteID })
	return out, 0
}
