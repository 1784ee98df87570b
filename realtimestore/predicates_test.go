package realtimestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesStop(t *testing.T) {
	withSeq := StopTimeUpdate{StopID: "s1", StopSequence: 5}
	withoutSeq := StopTimeUpdate{StopID: "s1"}

	assert.True(t, matchesStop(withSeq, "anything", 5, false), "sequence match wins when not loosened")
	assert.False(t, matchesStop(withSeq, "anything", 6, false), "sequence mismatch fails when not loosened")
	assert.True(t, matchesStop(withSeq, "s1", 6, true), "loosen forces stop_id matching even with a sequence present")
	assert.False(t, matchesStop(withSeq, "other", 6, true), "loosen still requires the stop_id to match")
	assert.True(t, matchesStop(withoutSeq, "s1", 99, false), "falls back to stop_id when no sequence was carried")
}

func TestDateMatches(t *testing.T) {
	cases := []struct {
		name                              string
		policy                            DateMatchPolicy
		startDate, serviceDate, actualDate string
		want                              bool
	}{
		{"no start_date always matches", DateMatchServiceDate, "", "20260315", "20260315", true},
		{"service-date policy requires service date equality", DateMatchServiceDate, "20260315", "20260315", "20260316", true},
		{"service-date policy rejects mismatch", DateMatchServiceDate, "20260314", "20260315", "20260315", false},
		{"actual-date policy requires calendar-day equality", DateMatchActualDate, "20260316", "20260315", "20260316", true},
		{"actual-date policy rejects mismatch", DateMatchActualDate, "20260315", "20260315", "20260316", false},
		{"none policy ignores start_date entirely", DateMatchNone, "19990101", "20260315", "20260315", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DateMatches(tc.policy, tc.startDate, tc.serviceDate, tc.actualDate))
		})
	}
}

func TestSkipsStopAndStopActualTime(t *testing.T) {
	snap := &Snapshot{
		Trips: map[string]*TripUpdate{
			"t1": {
				TripID: "t1",
				Updates: []StopTimeUpdate{
					{StopID: "a", StopSequence: 1, Relationship: RelationshipScheduled, ArrivalIsSet: true, ArrivalDelay: 30},
					{StopID: "b", StopSequence: 2, Relationship: RelationshipSkipped},
				},
			},
		},
	}

	assert.True(t, snap.SkipsStop("t1", "b", 2, false))
	assert.False(t, snap.SkipsStop("t1", "a", 1, false))
	assert.False(t, snap.SkipsStop("unknown-trip", "a", 1, false))

	ev, ok := snap.StopActualTime("t1", "a", 1, false)
	assert.True(t, ok)
	assert.Equal(t, int32(30), ev.ArrivalDelay)

	// A stop downstream of the last explicit update inherits the
	// propagated delay rather than reporting no realtime data at all.
	ev, ok = snap.StopActualTime("t1", "z", 99, false)
	assert.True(t, ok, "a stop past the last explicit update still gets the propagated delay")
	assert.Equal(t, int32(30), ev.ArrivalDelay)
	assert.Equal(t, int32(30), ev.DepartureDelay)

	// Nothing precedes the trip's very first explicit update, so there
	// is no delay to propagate onto an earlier sequence number.
	_, ok = snap.StopActualTime("t1", "z", 0, false)
	assert.False(t, ok)

	_, ok = snap.StopActualTime("unknown-trip", "a", 1, false)
	assert.False(t, ok)
}

func TestStoreGenerationIncrementsOnPublish(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Current())
	assert.Equal(t, uint64(0), s.Generation())

	snap1 := &Snapshot{Trips: map[string]*TripUpdate{}}
	s.Publish(snap1)
	assert.Same(t, snap1, s.Current())
	assert.Equal(t, uint64(1), s.Generation())

	snap2 := &Snapshot{Trips: map[string]*TripUpdate{}}
	s.Publish(snap2)
	assert.Same(t, snap2, s.Current())
	assert.Equal(t, uint64(2), s.Generation())
}
