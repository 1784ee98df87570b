package query

// StopTimeInfo is one row of TRI's stop list.
type StopTimeInfo struct {
	StopSequence uint32 `json:"stop_sequence"`
	StopID       string `json:"stop_id"`
	Arrival      string `json:"arrival"`
	Departure    string `json:"departure"`
	PickupType   int8   `json:"pickup_type"`
	DropoffType  int8   `json:"dropoff_type"`
}

// TRI: trip-id -> its full, ordered stop list.
func (e *Engine) TRI(args string) (any, int) {
	s := e.static()
	toks := fields(args)
	if s == nil || len(toks) == 0 {
		return nil, ErrUnknownTrip
	}
	trip, stopTimes, ok := s.Trip(toks[0])
	if !ok {
		return nil, ErrUnknownTrip
	}

	stops := make([]StopTimeInfo, 0, len(stopTimes))
	for _, st := range stopTimes {
		stops = append(stops, StopTimeInfo{
			StopSequence: st.StopSequence,
			StopID:       st.StopID,
			Arrival:      timeOffsetString(st.Arrival),
			Departure:    timeOffsetString(st.Departure),
			PickupType:   int8(st.PickupType),
			DropoffType:  int8(st.DropoffType),
		})
	}

	return struct {
		TripID    string         `json:"trip_id"`
		RouteID   string         `json:"route_id"`
		ServiceID string         `json:"service_id"`
		Headsign  string         `json:"headsign"`
		Stops     []StopTimeInfo `json:"stops"`
	}{trip.ID, trip.RouteID, trip.ServiceID, trip.Headsign, stops}, 0
}
