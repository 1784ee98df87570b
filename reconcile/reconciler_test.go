package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitproc/gtfsproc/ingest"
	"github.com/transitproc/gtfsproc/model"
	"github.com/transitproc/gtfsproc/realtimestore"
	"github.com/transitproc/gtfsproc/schedule"
)

func TestStatusFromTime_RealtimeWindows(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	r := &Reconciler{ArriveThreshold: 30 * time.Second}

	cases := []struct {
		name string
		rec  StopTripRecord
		now  time.Time
		want TripStatus
	}{
		{
			name: "arriving in 20s",
			rec:  StopTripRecord{RealTimeAvailable: true, PredictedArrival: base.Add(20 * time.Second), PredictedDeparture: base.Add(40 * time.Second)},
			now:  base,
			want: StatusArrive,
		},
		{
			name: "boarding between arrival and departure",
			rec:  StopTripRecord{RealTimeAvailable: true, PredictedArrival: base.Add(-40 * time.Second), PredictedDeparture: base.Add(40 * time.Second)},
			now:  base,
			want: StatusBoard,
		},
		{
			name: "departed exactly 30s ago stays DEPART",
			rec:  StopTripRecord{RealTimeAvailable: true, PredictedArrival: base.Add(-60 * time.Second), PredictedDeparture: base.Add(-30 * time.Second)},
			now:  base,
			want: StatusDepart,
		},
		{
			name: "departed 31s ago is IRRELEVANT (boundary property 11)",
			rec:  StopTripRecord{RealTimeAvailable: true, PredictedArrival: base.Add(-61 * time.Second), PredictedDeparture: base.Add(-31 * time.Second)},
			now:  base,
			want: StatusIrrelevant,
		},
		{
			name: "running well before arrival",
			rec:  StopTripRecord{RealTimeAvailable: true, PredictedArrival: base.Add(5 * time.Minute), PredictedDeparture: base.Add(6 * time.Minute)},
			now:  base,
			want: StatusRunning,
		},
		{
			name: "schedule only, in the future",
			rec:  StopTripRecord{ScheduledArrival: base.Add(time.Hour), ScheduledDeparture: base.Add(time.Hour)},
			now:  base,
			want: StatusSchedule,
		},
		{
			name: "schedule only, already past departure",
			rec:  StopTripRecord{ScheduledArrival: base.Add(-time.Hour), ScheduledDeparture: base.Add(-time.Hour)},
			now:  base,
			want: StatusIrrelevant,
		},
		{
			name: "no schedule and no realtime at all",
			rec:  StopTripRecord{},
			now:  base,
			want: StatusNoSchedule,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.statusFromTime(tc.rec, tc.now))
		})
	}
}

func TestInvalidate_Thresholds(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	r := &Reconciler{}
	var noLookahead time.Time

	t.Run("cancelled trip kept within 120s of scheduled departure", func(t *testing.T) {
		rec := StopTripRecord{Status: StatusCancel, ScheduledDeparture: base.Add(-100 * time.Second)}
		assert.Equal(t, StatusCancel, r.invalidate(rec, base, noLookahead))
	})

	t.Run("cancelled trip expires past 120s", func(t *testing.T) {
		rec := StopTripRecord{Status: StatusCancel, ScheduledDeparture: base.Add(-121 * time.Second)}
		assert.Equal(t, StatusIrrelevant, r.invalidate(rec, base, noLookahead))
	})

	t.Run("running record expires past 60s", func(t *testing.T) {
		rec := StopTripRecord{Status: StatusRunning, PredictedDeparture: base.Add(-61 * time.Second)}
		assert.Equal(t, StatusIrrelevant, r.invalidate(rec, base, noLookahead))
	})

	t.Run("running record kept within 60s", func(t *testing.T) {
		rec := StopTripRecord{Status: StatusRunning, PredictedDeparture: base.Add(-59 * time.Second)}
		assert.Equal(t, StatusRunning, r.invalidate(rec, base, noLookahead))
	})

	t.Run("beyond lookahead is always IRRELEVANT", func(t *testing.T) {
		rec := StopTripRecord{Status: StatusSchedule, ScheduledDeparture: base.Add(10 * time.Minute)}
		lookahead := base.Add(5 * time.Minute)
		assert.Equal(t, StatusIrrelevant, r.invalidate(rec, base, lookahead))
	})

	t.Run("already IRRELEVANT stays IRRELEVANT", func(t *testing.T) {
		rec := StopTripRecord{Status: StatusIrrelevant}
		assert.Equal(t, StatusIrrelevant, r.invalidate(rec, base, noLookahead))
	})
}

func TestBestTime_Precedence(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	rec := StopTripRecord{
		ScheduledArrival:   base,
		ScheduledDeparture: base.Add(time.Minute),
		PredictedArrival:   base.Add(2 * time.Minute),
	}
	assert.Equal(t, base.Add(2*time.Minute), rec.bestTime(), "predicted arrival used when no predicted departure is set")

	rec.PredictedDeparture = base.Add(3 * time.Minute)
	assert.Equal(t, base.Add(3*time.Minute), rec.bestTime(), "predicted departure takes precedence when set")
}

func TestAddSupplementalTrips_KeyedByRealtimeRouteIDWhenNoStaticTrip(t *testing.T) {
	feed := &ingest.RawFeed{
		Metadata: model.FeedMetadata{Timezone: "UTC"},
		Routes:   []model.Route{{ID: "R1"}},
		Trips:    []model.Trip{{ID: "t1", RouteID: "R1"}},
		Stops:    []model.Stop{{ID: "s1", Name: "S1"}},
		StopTimes: []model.StopTime{
			{TripID: "t1", StopID: "s1", StopSequence: 1},
		},
	}
	static, err := schedule.Build(feed)
	require.NoError(t, err)

	arrivalTime := time.Date(2026, 3, 15, 12, 5, 0, 0, time.UTC)
	rt := &realtimestore.Snapshot{
		Trips: map[string]*realtimestore.TripUpdate{
			// "extra" has no static trip at all; it carries its own
			// route_id and must still surface as a supplemental
			// record under that route, not get dropped.
			"extra": {
				TripID:  "extra",
				RouteID: "R9",
				Added:   true,
				Updates: []realtimestore.StopTimeUpdate{
					{StopID: "s1", StopSequence: 1, ArrivalIsSet: true, ArrivalTime: arrivalTime},
				},
			},
			// "orphan" has neither a static trip nor a carried
			// route-id: it cannot be keyed by anything and must be
			// skipped rather than surfaced under a blank route.
			"orphan": {
				TripID: "orphan",
				Updates: []realtimestore.StopTimeUpdate{
					{StopID: "s1", StopSequence: 1},
				},
			},
		},
	}

	r := &Reconciler{Static: static, Realtime: rt}
	byRoute := map[string][]StopTripRecord{}
	r.addSupplementalTrips("s1", Query{}, byRoute)

	require.Len(t, byRoute["R9"], 1, "an Added trip with no static counterpart is keyed by its own route_id")
	assert.Equal(t, "extra", byRoute["R9"][0].TripID)
	assert.Equal(t, StopStatusSupplemental, byRoute["R9"][0].StopStatus)

	for route := range byRoute {
		for _, rec := range byRoute[route] {
			assert.NotEqual(t, "orphan", rec.TripID, "a trip with no static match and no route_id must not surface as supplemental")
		}
	}
}
