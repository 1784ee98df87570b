package reconcile

import (
	"sort"
	"time"
)

// LegSpec is one leg of a connection search: board somewhere in
// OriginStopIDs, alight somewhere in DestinationStopIDs. MinTransfer/
// MaxTransfer only apply to legs after the first — they bound how long
// after the previous leg's arrival this leg's departure may be
// (MaxTransfer == 0 means unbounded).
type LegSpec struct {
	OriginStopIDs      []string
	DestinationStopIDs []string
	MinTransferMinutes int64
	MaxTransferMinutes int64
}

// ConnectionQuery describes an EES/EER/ETS/ETR search: an arbitrary
// chain of legs, each extending the previous one's arrival within its
// transfer window. SeedTripID, when set, makes this an ETS/ETR query:
// leg 0's origin is that trip's last stop before leg 0's destination
// rather than a stop list.
type ConnectionQuery struct {
	Legs             []LegSpec
	SeedTripID       string
	Now              time.Time
	LookaheadMinutes int32
	MaxResults       int
}

// LegMatch is one leg of a realized candidate: a single trip serving
// both the leg's origin and destination stop.
type LegMatch struct {
	OriginStopID      string
	DestinationStopID string
	TripID            string
	RouteID           string
	Origin            StopTripRecord
	Destination       StopTripRecord
}

// Connection is one candidate journey through every leg of a
// ConnectionQuery. Dead marks a candidate a later leg failed to
// extend; FindConnections marks candidates dead during the search and
// filters them out of its returned slice, so callers receive only
// live, complete candidates and never a dead one.
type Connection struct {
	Legs []LegMatch
	Dead bool
}

// FindConnections runs the chained multi-leg connection search:
// leg 0 seeds one candidate per matched (origin, destination) trip
// pair (or, for ETS/ETR, per matched trip at the seed stop), and each
// subsequent leg either extends every live candidate within its
// transfer window or kills it. Results are ordered by first-leg wait
// ascending.
func (r *Reconciler) FindConnections(q ConnectionQuery) []Connection {
	if len(q.Legs) == 0 {
		return nil
	}

	var candidates []Connection
	if q.SeedTripID != "" {
		candidates = r.seedFromTrip(q.SeedTripID, q.Legs[0], q)
	} else {
		candidates = r.seedPairs(q.Legs[0], q)
	}

	for i := 1; i < len(q.Legs); i++ {
		leg := q.Legs[i]
		for ci := range candidates {
			c := &candidates[ci]
			if c.Dead {
				continue
			}
			prevArr := c.Legs[len(c.Legs)-1].Destination.bestTime()
			match, ok := r.extendLeg(leg, prevArr, q)
			if !ok {
				c.Dead = true
				continue
			}
			c.Legs = append(c.Legs, match)
		}
	}

	live := make([]Connection, 0, len(candidates))
	for _, c := range candidates {
		if !c.Dead {
			live = append(live, c)
		}
	}

	sort.SliceStable(live, func(i, j int) bool {
		return live[i].Legs[0].firstLegWait().Before(live[j].Legs[0].firstLegWait())
	})
	if q.MaxResults > 0 && len(live) > q.MaxResults {
		live = live[:q.MaxResults]
	}
	return live
}

func (m LegMatch) firstLegWait() time.Time {
	return m.Origin.bestTime()
}

// seedPairs builds leg-0 candidates: every trip that serves both an
// origin stop and a destination stop of leg, subject to the pair
// rules in §4.5.
func (r *Reconciler) seedPairs(leg LegSpec, q ConnectionQuery) []Connection {
	origins := r.recordsByTrip(leg.OriginStopIDs, q)
	destinations := r.recordsByTrip(leg.DestinationStopIDs, q)

	var out []Connection
	for tripID, o := range origins {
		d, ok := destinations[tripID]
		if !ok {
			continue
		}
		if !pairEligible(o, d) {
			continue
		}
		out = append(out, Connection{Legs: []LegMatch{{
			OriginStopID:      o.StopID,
			DestinationStopID: d.StopID,
			TripID:            tripID,
			RouteID:           o.RouteID,
			Origin:            o,
			Destination:       d,
		}}})
	}
	return out
}

// seedFromTrip builds the single leg-0 candidate for ETS/ETR: the
// named trip's record at one of leg's destination stops, paired with
// its record at the stop just before it (the highest stop_sequence
// below the destination's).
func (r *Reconciler) seedFromTrip(tripID string, leg LegSpec, q ConnectionQuery) []Connection {
	destinations := r.recordsByTrip(leg.DestinationStopIDs, q)
	d, ok := destinations[tripID]
	if !ok {
		return nil
	}

	trip, stopTimes, ok := r.Static.Trip(tripID)
	if !ok {
		return nil
	}
	var now time.Time
	if r.Realtime != nil {
		now = r.Realtime.RetrievedAt
	} else {
		now = q.Now
	}

	var origin StopTripRecord
	found := false
	for _, st := range stopTimes {
		if st.StopSequence >= d.StopSequence {
			continue
		}
		rec := r.buildRecord(d.ServiceDate, trip, st, now)
		if !found || rec.StopSequence > origin.StopSequence {
			origin, found = rec, true
		}
	}
	if !found || !pairEligible(origin, d) {
		return nil
	}

	return []Connection{{Legs: []LegMatch{{
		OriginStopID:      origin.StopID,
		DestinationStopID: d.StopID,
		TripID:            tripID,
		RouteID:           origin.RouteID,
		Origin:            origin,
		Destination:       d,
	}}}}
}

// extendLeg finds one trip serving leg's origin/destination whose
// departure falls within [prevArr + min*60, prevArr + max*60]
// (unbounded above when max == 0), preferring the earliest-departing
// eligible match.
func (r *Reconciler) extendLeg(leg LegSpec, prevArr time.Time, q ConnectionQuery) (LegMatch, bool) {
	if prevArr.IsZero() {
		return LegMatch{}, false
	}
	windowStart := prevArr.Add(time.Duration(leg.MinTransferMinutes) * time.Minute)
	var windowEnd time.Time
	if leg.MaxTransferMinutes > 0 {
		windowEnd = prevArr.Add(time.Duration(leg.MaxTransferMinutes) * time.Minute)
	}

	origins := r.recordsByTrip(leg.OriginStopIDs, q)
	destinations := r.recordsByTrip(leg.DestinationStopIDs, q)

	var best LegMatch
	haveBest := false
	for tripID, o := range origins {
		d, ok := destinations[tripID]
		if !ok || !pairEligible(o, d) {
			continue
		}
		dep := o.bestTime()
		if dep.Before(windowStart) {
			continue
		}
		if !windowEnd.IsZero() && dep.After(windowEnd) {
			continue
		}
		if !haveBest || dep.Before(best.Origin.bestTime()) {
			best = LegMatch{
				OriginStopID:      o.StopID,
				DestinationStopID: d.StopID,
				TripID:            tripID,
				RouteID:           o.RouteID,
				Origin:            o,
				Destination:       d,
			}
			haveBest = true
		}
	}
	return best, haveBest
}

// recordsByTrip reconciles stopIDs as given (parent stations are not
// expanded here) and returns, per trip_id, its record at whichever of
// those stops it serves.
func (r *Reconciler) recordsByTrip(stopIDs []string, q ConnectionQuery) map[string]StopTripRecord {
	out := map[string]StopTripRecord{}
	stops := r.Reconcile(Query{
		StopIDs:          stopIDs,
		Now:              q.Now,
		LookaheadMinutes: q.LookaheadMinutes,
		DirectionID:      -1,
	})
	for _, stop := range stops {
		for _, route := range stop.Routes {
			for _, trip := range route.Trips {
				if existing, ok := out[trip.TripID]; ok && existing.StopSequence <= trip.StopSequence {
					continue
				}
				out[trip.TripID] = trip
			}
		}
	}
	return out
}

// pairEligible applies §4.5's four pair-intersection rules to an
// (origin, destination) record pair sharing a trip_id.
func pairEligible(o, d StopTripRecord) bool {
	if o.StopSequence >= d.StopSequence {
		return false
	}
	if o.PickupType == 1 || d.DropoffType == 1 {
		return false
	}
	if o.ServiceDate != d.ServiceDate {
		return false
	}
	if o.Status == StatusSkip || o.Status == StatusCancel || d.Status == StatusSkip || d.Status == StatusCancel {
		return false
	}
	return true
}
