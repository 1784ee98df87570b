package realtimestore

import "sort"

// DateMatchPolicy controls how a realtime TripUpdate's implied service
// date is reconciled against the service date of the static trip
// instance it is being attached to.
type DateMatchPolicy int

const (
	// DateMatchServiceDate requires the TripUpdate's start_date (when
	// present) to equal the schedule's service date being reconciled.
	DateMatchServiceDate DateMatchPolicy = iota
	// DateMatchActualDate requires the TripUpdate's start_date to
	// equal the calendar date the server is actually running on,
	// regardless of which service date the trip instance belongs to
	// (relevant for trips that run past midnight).
	DateMatchActualDate
	// DateMatchNone attaches any realtime TripUpdate found for a
	// trip_id to every service-date instance of that trip, ignoring
	// start_date entirely.
	DateMatchNone
)

// DateMatches reports whether a TripUpdate carrying the given
// start_date (possibly empty, meaning the feed omitted it) should be
// attached to a trip instance running on serviceDate, as observed on
// calendar day actualDate, under policy.
func DateMatches(policy DateMatchPolicy, startDate, serviceDate, actualDate string) bool {
	if startDate == "" || policy == DateMatchNone {
		return true
	}
	switch policy {
	case DateMatchServiceDate:
		return startDate == serviceDate
	case DateMatchActualDate:
		return startDate == actualDate
	default:
		return true
	}
}

// Exists reports whether any realtime data exists for tripID.
func (s *Snapshot) Exists(tripID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Trips[tripID]
	return ok
}

// IsCancelled reports whether tripID was explicitly cancelled by the
// realtime feed.
func (s *Snapshot) IsCancelled(tripID string) bool {
	if s == nil {
		return false
	}
	tu, ok := s.Trips[tripID]
	return ok && tu.Cancelled
}

// SkipsStop reports whether the realtime feed marks the stop of tripID
// identified by (stopID, stopSequence) as explicitly skipped. The stop
// is matched by stop_sequence whenever the update carries one, unless
// loosen forces stop_id matching regardless.
func (s *Snapshot) SkipsStop(tripID, stopID string, stopSequence uint32, loosen bool) bool {
	if s == nil {
		return false
	}
	tu, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	for _, u := range tu.Updates {
		if matchesStop(u, stopID, stopSequence, loosen) && u.Relationship == RelationshipSkipped {
			return true
		}
	}
	return false
}

// StopTimeEvent is the resolved realtime prediction for one stop
// along a trip, after delay propagation has filled any update whose
// arrival/departure the feed left blank.
type StopTimeEvent struct {
	StopID         string
	StopSequence   uint32
	ArrivalIsSet   bool
	ArrivalDelay   int32
	DepartureIsSet bool
	DepartureDelay int32
	Relationship   ScheduleRelationship
}

// StopTimesForTrip returns tripID's realtime StopTimeUpdates, sorted
// by stop_sequence, with delay propagated forward through any update
// that specified only one of arrival/departure: a stop with an
// explicit arrival delay but no departure delay inherits the arrival
// delay for its departure, and vice versa, matching vehicle behavior
// (dwell time is usually short relative to schedule deviation).
func (s *Snapshot) StopTimesForTrip(tripID string) []StopTimeEvent {
	if s == nil {
		return nil
	}
	tu, ok := s.Trips[tripID]
	if !ok {
		return nil
	}

	events := make([]StopTimeEvent, 0, len(tu.Updates))
	for _, u := range tu.Updates {
		events = append(events, StopTimeEvent{
			StopID:         u.StopID,
			StopSequence:   u.StopSequence,
			ArrivalIsSet:   u.ArrivalIsSet,
			ArrivalDelay:   u.ArrivalDelay,
			DepartureIsSet: u.DepartureIsSet,
			DepartureDelay: u.DepartureDelay,
			Relationship:   u.Relationship,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StopSequence < events[j].StopSequence
	})

	var lastDelay int32
	var haveDelay bool
	for i := range events {
		e := &events[i]
		if e.ArrivalIsSet {
			lastDelay, haveDelay = e.ArrivalDelay, true
		}
		if e.DepartureIsSet {
			lastDelay, haveDelay = e.DepartureDelay, true
		}
		if !e.ArrivalIsSet && haveDelay {
			e.ArrivalDelay = lastDelay
		}
		if !e.DepartureIsSet && haveDelay {
			e.DepartureDelay = lastDelay
		}
	}

	return events
}

// StopActualTime looks up the realtime prediction for one specific
// stop of tripID, identified by (stopID, stopSequence). Matching is by
// stop_sequence whenever both the update and the static stop carry
// one, falling back to stop_id otherwise; loosen forces stop_id
// matching even when sequences are present, for feeds whose sequence
// numbering is known to disagree with the static schedule's.
//
// When no update names stopSequence exactly, the delay from the
// nearest preceding explicit update is propagated onto a synthesized
// event: a delay given at some stop carries forward to every
// downstream stop lacking its own update, whether that gap sits
// between two explicit updates or trails off past the last one.
func (s *Snapshot) StopActualTime(tripID, stopID string, stopSequence uint32, loosen bool) (StopTimeEvent, bool) {
	events := s.StopTimesForTrip(tripID)

	if !loosen {
		i := sort.Search(len(events), func(i int) bool {
			return events[i].StopSequence >= stopSequence
		})
		if i < len(events) && events[i].StopSequence == stopSequence {
			return events[i], true
		}
		if i > 0 {
			prev := events[i-1]
			return StopTimeEvent{
				StopID:         stopID,
				StopSequence:   stopSequence,
				ArrivalIsSet:   true,
				ArrivalDelay:   prev.ArrivalDelay,
				DepartureIsSet: true,
				DepartureDelay: prev.DepartureDelay,
				Relationship:   RelationshipNoData,
			}, true
		}
	}

	for _, e := range events {
		if e.StopID != "" && e.StopID == stopID {
			return e, true
		}
	}
	return StopTimeEvent{}, false
}

// matchesStop decides whether one realtime StopTimeUpdate refers to
// the static stop identified by (stopID, stopSequence): by
// stop_sequence when present and not loosened, otherwise by stop_id.
func matchesStop(u StopTimeUpdate, stopID string, stopSequence uint32, loosen bool) bool {
	if !loosen && u.StopSequence != 0 {
		return u.StopSequence == stopSequence
	}
	return u.StopID != "" && u.StopID == stopID
}
