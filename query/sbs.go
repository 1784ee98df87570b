package query

import "sort"

// DirectTrip is one trip serving both queried stops of an SBS query,
// in the requested direction.
type DirectTrip struct {
	TripID     string `json:"trip_id"`
	RouteID    string `json:"route_id"`
	OriginSeq  uint32 `json:"origin_sequence"`
	DestSeq    uint32 `json:"destination_sequence"`
}

// SBS: "day a b" -> trips serving stop a then stop b directly (a's
// stop_sequence strictly before b's) on the given service date.
func (e *Engine) SBS(args string) (any, int) {
	s := e.static()
	toks := fields(args)
	if s == nil || len(toks) != 3 {
		return nil, ErrSBSBadArgCount
	}
	date, err := dayToken(toks[0], e.Now(), s.Location)
	if err != nil {
		return nil, ErrSBSUnknownDay
	}
	origin, dest := toks[1], toks[2]
	if _, ok := s.Stop(origin); !ok {
		return nil, ErrSBSUnknownOrigin
	}
	if _, ok := s.Stop(dest); !ok {
		return nil, ErrSBSUnknownDest
	}

	services, err := s.RunningServices(date)
	if err != nil {
		return nil, ErrSBSUnknownDay
	}

	originSeqByTrip := map[string]uint32{}
	for _, st := range s.StopTimesForStop(origin, services) {
		originSeqByTrip[st.TripID] = st.StopSequence
	}

	var out []DirectTrip
	for _, st := range s.StopTimesForStop(dest, services) {
		originSeq, ok := originSeqByTrip[st.TripID]
		if !ok || originSeq >= st.StopSequence {
			continue
		}
		trip, _, ok := s.Trip(st.TripID)
		if !ok {
			continue
		}
		out = append(out, DirectTrip{
			TripID:    st.TripID,
			RouteID:   trip.RouteID,
			OriginSeq: originSeq,
			DestSeq:   st.StopSequence,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginSeq < out[j].OriginSeq })

	return struct {
		Trips []DirectTrip `json:"trips"`
	}{out}, 0
}
