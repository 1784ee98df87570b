package query

import (
	"context"
	"sort"

	"github.com/transitproc/gtfsproc/feedhistory"
)

// RefreshDiagnostics answers RDS: the refresher's most recent
// static/realtime fetch history, per SPEC_FULL's Feed Provenance
// Store component.
type RefreshDiagnostics struct {
	LastStaticSuccess   *FeedFetchInfo `json:"last_static_success,omitempty"`
	LastRealtimeSuccess *FeedFetchInfo `json:"last_realtime_success,omitempty"`
	RecentRealtime      []FeedFetchInfo `json:"recent_realtime"`
}

type FeedFetchInfo struct {
	URL         string `json:"url"`
	RetrievedAt string `json:"retrieved_at"`
	DownloadMS  int64  `json:"download_ms"`
	ParseMS     int64  `json:"parse_ms"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

func feedFetchInfo(r feedhistory.Record, clock12Hour bool) FeedFetchInfo {
	return FeedFetchInfo{
		URL:         r.URL,
		RetrievedAt: formatMessageTime(r.RetrievedAt, clock12Hour),
		DownloadMS:  r.DownloadMS,
		ParseMS:     r.ParseMS,
		Success:     r.Success,
		Error:       r.Error,
	}
}

// RDS has no arguments and cannot fail: an empty history is a valid
// answer before the first refresh completes.
func (e *Engine) RDS(args string) (any, int) {
	ctx := context.Background()
	resp := RefreshDiagnostics{}

	if rec, ok, err := e.History.LastSuccess(ctx, feedhistory.KindStatic); err == nil && ok {
		info := feedFetchInfo(rec, e.Config.Clock12Hour)
		resp.LastStaticSuccess = &info
	}
	if rec, ok, err := e.History.LastSuccess(ctx, feedhistory.KindRealtime); err == nil && ok {
		info := feedFetchInfo(rec, e.Config.Clock12Hour)
		resp.LastRealtimeSuccess = &info
	}
	if recent, err := e.History.Recent(ctx, feedhistory.KindRealtime, 20); err == nil {
		for _, r := range recent {
			resp.RecentRealtime = append(resp.RecentRealtime, feedFetchInfo(r, e.Config.Clock12Hour))
		}
	}
	return resp, 0
}

// RouteRealtimeTally is one route's realtime trip counts for RPS.
type RouteRealtimeTally struct {
	RouteID    string   `json:"route_id"`
	Tracked    int      `json:"tracked"`
	Cancelled  int      `json:"cancelled"`
	Mismatched []string `json:"mismatched_trip_ids,omitempty"`
}

// RPS has no arguments: per-route realtime tallies across the active
// snapshot.
func (e *Engine) RPS(args string) (any, int) {
	s := e.static()
	rt := e.realtime()
	if s == nil || rt == nil {
		return struct {
			Routes           []RouteRealtimeTally `json:"routes"`
			DuplicateTripIDs []string             `json:"duplicate_trip_ids,omitempty"`
			Orphans          []string             `json:"orphan_trip_ids,omitempty"`
		}{}, 0
	}

	tally := map[string]*RouteRealtimeTally{}
	for tripID, tu := range rt.Trips {
		trip, _, ok := s.Trip(tripID)
		if !ok {
			continue
		}
		t, ok := tally[trip.RouteID]
		if !ok {
			t = &RouteRealtimeTally{RouteID: trip.RouteID}
			tally[trip.RouteID] = t
		}
		t.Tracked++
		if tu.Cancelled {
			t.Cancelled++
		}
	}
	for routeID, tripIDs := range rt.Mismatch {
		t, ok := tally[routeID]
		if !ok {
			t = &RouteRealtimeTally{RouteID: routeID}
			tally[routeID] = t
		}
		t.Mismatched = append(t.Mismatched, tripIDs...)
	}
	out := make([]RouteRealtimeTally, 0, len(tally))
	for _, t := range tally {
		sort.Strings(t.Mismatched)
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteID < out[j].RouteID })
	return struct {
		Routes           []RouteRealtimeTally `json:"routes"`
		DuplicateTripIDs []string             `json:"duplicate_trip_ids,omitempty"`
		Orphans          []string             `json:"orphan_trip_ids,omitempty"`
	}{out, rt.DuplicateTripIDs, rt.Orphans}, 0
}

// RTI has no arguments: added/active/cancelled trip-id lists from the
// active snapshot.
func (e *Engine) RTI(args string) (any, int) {
	rt := e.realtime()
	resp := struct {
		Added     []string `json:"added"`
		Active    []string `json:"active"`
		Cancelled []string `json:"cancelled"`
	}{}
	if rt == nil {
		return resp, 0
	}
	for tripID, tu := range rt.Trips {
		if tu.Cancelled {
			resp.Cancelled = append(resp.Cancelled, tripID)
		} else if tu.Added {
			resp.Added = append(resp.Added, tripID)
		} else {
			resp.Active = append(resp.Active, tripID)
		}
	}
	sort.Strings(resp.Added)
	sort.Strings(resp.Active)
	sort.Strings(resp.Cancelled)
	return resp, 0
}

// TRR: route-ids -> real-time trips currently tracked on those
// routes. 801 when no realtime store is active at all, 802 when none
// of the requested routes has any realtime-tracked trip, 803 when the
// active snapshot carries an empty feed timestamp (a malformed or
// stalled feed).
func (e *Engine) TRR(args string) (any, int) {
	s := e.static()
	rt := e.realtime()
	if rt == nil {
		return nil, ErrNoActiveRealtime
	}
	if rt.Timestamp == 0 {
		return nil, ErrEmptyRealtimeStamp
	}

	routeIDs := splitStops(args)
	if len(routeIDs) == 0 {
		return nil, ErrNoRealtimeForRoute
	}
	want := map[string]bool{}
	for _, id := range routeIDs {
		want[id] = true
	}

	var out []TripSummary
	for tripID, tu := range rt.Trips {
		if tu.Cancelled || s == nil {
			continue
		}
		trip, _, ok := s.Trip(tripID)
		if !ok || !want[trip.RouteID] {
			continue
		}
		out = append(out, TripSummary{TripID: tripID, ServiceID: trip.ServiceID, Headsign: trip.Headsign, ShortName: trip.ShortName})
	}
	if len(out) == 0 {
		return nil, ErrNoRealtimeForRoute
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TripID < out[j].TripID })
	return struct {
		Trips []TripSummary `json:"trips"`
	}{out}, 0
}
