package query

import (
	"fmt"
	"strings"

	"github.com/transitproc/gtfsproc/reconcile"
	"github.com/transitproc/gtfsproc/schedule"
)

// LegInfo is one realized leg of a connection result.
type LegInfo struct {
	OriginStopID      string         `json:"origin_stop_id"`
	DestinationStopID string         `json:"destination_stop_id"`
	Trip              TripRecordInfo `json:"trip"`
}

// ConnectionInfo is one complete multi-leg journey.
type ConnectionInfo struct {
	Legs []LegInfo `json:"legs"`
}

// EES: earliest eligible stop-to-stop connection search.
func (e *Engine) EES(args string) (any, int) {
	return e.connections(args, false)
}

// EER: same search, route-oriented result grouping (the reconciler
// already groups by route upstream of connection search, so the
// payload shape matches EES; the distinction is the client's
// preferred verb for "I want this grouped by route").
func (e *Engine) EER(args string) (any, int) {
	return e.connections(args, false)
}

// ETS: connection search seeded from an in-progress trip instead of
// an origin stop.
func (e *Engine) ETS(args string) (any, int) {
	return e.connections(args, true)
}

// ETR is ETS's route-oriented counterpart (see EER).
func (e *Engine) ETR(args string) (any, int) {
	return e.connections(args, true)
}

// stopIDKnown reports whether id names a real stop or a parent
// station, mirroring the original request parser's plain existence
// check (as opposed to expandStops, which falls back to returning the
// id verbatim when it resolves to nothing).
func stopIDKnown(s *schedule.Store, id string) bool {
	if _, ok := s.Stop(id); ok {
		return true
	}
	return len(s.ChildStops(id)) > 0
}

func (e *Engine) connections(args string, seeded bool) (any, int) {
	s := e.static()
	toks := fields(args)
	if s == nil || len(toks) < 2 {
		return nil, ErrConnBadArgCount
	}
	lookahead, err := lookaheadMinutes(toks[0])
	if err != nil {
		return nil, ErrConnBadArgCount
	}

	// The original wire format is pipe-delimited ("listifyIDs"), not
	// comma-delimited.
	items := strings.Split(strings.Join(toks[1:], " "), "|")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	n := len(items)
	if n != 2 && (n-2)%3 != 0 {
		return nil, ErrConnBadArgCount
	}

	// Validate every argument up front, in the same order the original
	// request parser does: a connection-range token sits at index >= 2
	// on a stride of 3, everything else is a stop-id, except the very
	// first token when it is a seed trip-id (ETS/ETR), which is never
	// validated against the stop table.
	for i := 0; i < n; i++ {
		if i >= 2 && (i-2)%3 == 0 {
			if _, _, err := connectionArg(items[i]); err != nil {
				switch err {
				case errRangeInverted:
					return nil, ErrConnRangeInverted
				case errTooManyDashes:
					return nil, ErrConnTooManyDashes
				default:
					return nil, ErrConnBadTransferArg
				}
			}
			continue
		}
		if i == 0 && seeded {
			continue
		}
		if !stopIDKnown(s, items[i]) {
			return nil, ErrConnUnknownStop
		}
	}

	var seedTripID string
	var legs []reconcile.LegSpec

	first := reconcile.LegSpec{DestinationStopIDs: expandStops(s, splitStops(items[1]))}
	if seeded {
		// An unresolvable seed trip-id is not an error: the original
		// system simply returns a null current_trip.
		seedTripID = items[0]
	} else {
		first.OriginStopIDs = expandStops(s, splitStops(items[0]))
	}
	legs = append(legs, first)

	for i := 2; i < n; i += 3 {
		minM, maxM, _ := connectionArg(items[i])
		legs = append(legs, reconcile.LegSpec{
			OriginStopIDs:      expandStops(s, splitStops(items[i+1])),
			DestinationStopIDs: expandStops(s, splitStops(items[i+2])),
			MinTransferMinutes: minM,
			MaxTransferMinutes: maxM,
		})
	}

	cacheKey := fmt.Sprintf("%v|%s|%d", seeded, strings.Join(items, "|"), lookahead)
	results := e.findConnectionsCached(cacheKey, reconcile.ConnectionQuery{
		Legs:             legs,
		SeedTripID:       seedTripID,
		Now:              e.Now(),
		LookaheadMinutes: lookahead,
	})

	// An empty result is not an error: the original system returns an
	// empty/partial result with error 0 rather than failing the request.
	out := make([]ConnectionInfo, 0, len(results))
	for _, c := range results {
		var legInfos []LegInfo
		for _, m := range c.Legs {
			legInfos = append(legInfos, LegInfo{
				OriginStopID:      m.OriginStopID,
				DestinationStopID: m.DestinationStopID,
				Trip:              tripRecordInfo(m.Origin, e.Config.Clock12Hour),
			})
		}
		out = append(out, ConnectionInfo{Legs: legInfos})
	}

	return struct {
		Connections []ConnectionInfo `json:"connections"`
	}{out}, 0
}
