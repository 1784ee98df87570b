package realtimestore

import (
	"testing"

	p "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/transitproc/gtfsproc/ingest"
	"github.com/transitproc/gtfsproc/model"
	"github.com/transitproc/gtfsproc/schedule"
)

func buildFeedMessage(t *testing.T, entities []*p.FeedEntity) []byte {
	t.Helper()
	incrementality := p.FeedHeader_FULL_DATASET
	feed := &p.FeedMessage{
		Header: &p.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           proto.Uint64(1700000000),
		},
		Entity: entities,
	}
	data, err := proto.Marshal(feed)
	require.NoError(t, err)
	return data
}

func TestParse_AddedTripCarriesStopTimeUpdates(t *testing.T) {
	added := p.TripDescriptor_ADDED
	scheduled := p.TripUpdate_StopTimeUpdate_SCHEDULED
	data := buildFeedMessage(t, []*p.FeedEntity{
		{
			Id: proto.String("extra1"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{
					TripId:               proto.String("extra1"),
					RouteId:              proto.String("R9"),
					ScheduleRelationship: &added,
				},
				StopTimeUpdate: []*p.TripUpdate_StopTimeUpdate{
					{
						ScheduleRelationship: &scheduled,
						StopId:               proto.String("s1"),
						StopSequence:         proto.Uint32(1),
						Departure: &p.TripUpdate_StopTimeEvent{
							Time: proto.Int64(1700000100),
						},
					},
				},
			},
		},
	})

	snap, err := Parse([][]byte{data})
	require.NoError(t, err)

	tu, ok := snap.Trips["extra1"]
	require.True(t, ok)
	assert.True(t, tu.Added)
	assert.Equal(t, "R9", tu.RouteID)
	require.Len(t, tu.Updates, 1, "ADDED trips must carry their stop_time_updates, not just a bare counter bump")
	assert.Equal(t, "s1", tu.Updates[0].StopID)
	assert.True(t, tu.Updates[0].DepartureIsSet)
	assert.Equal(t, 1, snap.NumAddedTrips)
}

// buildTestStaticStore builds a one-route, two-trip, one-stop static
// Store: trips t1 and t2 each serve stop s1 at stop_sequence 1.
func buildTestStaticStore(t *testing.T) *schedule.Store {
	t.Helper()
	feed := &ingest.RawFeed{
		Metadata: model.FeedMetadata{Timezone: "UTC"},
		Routes:   []model.Route{{ID: "R1"}},
		Trips:    []model.Trip{{ID: "t1", RouteID: "R1"}, {ID: "t2", RouteID: "R1"}},
		Stops:    []model.Stop{{ID: "s1", Name: "S1"}},
		StopTimes: []model.StopTime{
			{TripID: "t1", StopID: "s1", StopSequence: 1},
			{TripID: "t2", StopID: "s1", StopSequence: 1},
		},
	}
	store, err := schedule.Build(feed)
	require.NoError(t, err)
	return store
}

func TestBuildMismatchOrphans(t *testing.T) {
	static := buildTestStaticStore(t)

	scheduled := p.TripDescriptor_SCHEDULED
	matchSeq := p.TripUpdate_StopTimeUpdate_SCHEDULED

	// t1 matches the static schedule exactly: no mismatch.
	// t2 claims a stop_sequence the static trip doesn't have: mismatch.
	// "ghost" has neither a static trip nor a route_id: orphan.
	data := buildFeedMessage(t, []*p.FeedEntity{
		{
			Id: proto.String("t1"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{TripId: proto.String("t1"), ScheduleRelationship: &scheduled},
				StopTimeUpdate: []*p.TripUpdate_StopTimeUpdate{
					{ScheduleRelationship: &matchSeq, StopId: proto.String("s1"), StopSequence: proto.Uint32(1)},
				},
			},
		},
		{
			Id: proto.String("t2"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{TripId: proto.String("t2"), ScheduleRelationship: &scheduled},
				StopTimeUpdate: []*p.TripUpdate_StopTimeUpdate{
					{ScheduleRelationship: &matchSeq, StopId: proto.String("bogus"), StopSequence: proto.Uint32(99)},
				},
			},
		},
		{
			Id: proto.String("ghost"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{TripId: proto.String("ghost"), ScheduleRelationship: &scheduled},
			},
		},
	})

	snap, err := Parse([][]byte{data})
	require.NoError(t, err)

	BuildMismatchOrphans(snap, static)

	assert.ElementsMatch(t, []string{"t2"}, snap.Mismatch["R1"])
	assert.ElementsMatch(t, []string{"ghost"}, snap.Orphans)
}
