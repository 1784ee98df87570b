package ingest

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// TestParseStatic_MalformedRowsAreSkippedNotFatal builds a bundle
// where routes, calendar, trips and stop_times each carry good rows
// beside rows broken in a distinct way (bad route_type, duplicate trip_id, unresolvable stop_time
// references, an unparsable calendar date). None of that should abort
// the load: only the good rows survive.
func TestParseStatic_MalformedRowsAreSkippedNotFatal(t *testing.T) {
	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"A1,Agency One,http://example.com,UTC\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_desc,route_type,route_url,route_color,route_text_color\n" +
			"R1,A1,1,Route One,,3,,,\n" +
			"R2,A1,2,Route Two,,999,,,\n", // invalid route_type, skipped
		"calendar.txt": "service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday\n" +
			"S1,20260101,20261231,1,1,1,1,1,1,1\n" +
			"S2,notadate,20261231,1,1,1,1,1,1,1\n", // unparsable start_date, skipped
		"stops.txt": "stop_id,stop_name,stop_desc,stop_lat,stop_lon,location_type,parent_station\n" +
			"s1,Stop One,,1.0,1.0,0,\n" +
			"s2,Stop Two,,2.0,2.0,0,\n",
		"trips.txt": "trip_id,route_id,service_id,trip_headsign,trip_short_name\n" +
			"t1,R1,S1,,\n" +
			"t1,R1,S1,,\n" + // duplicate trip_id, second row skipped
			"t2,R2,S1,,\n", // references the skipped route, skipped
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time,stop_headsign,shape_dist_traveled,pickup_type,drop_off_type\n" +
			"t1,s1,1,08:00:00,08:00:00,,,,\n" +
			"t1,s2,2,08:10:00,08:10:00,,,,\n" +
			"t1,nosuchstop,3,08:20:00,08:20:00,,,,\n", // unknown stop_id, skipped
	}

	feed, err := ParseStatic(testLogger(), buildBundle(t, files))
	require.NoError(t, err, "a bad row never aborts the whole load")

	require.Len(t, feed.Routes, 1)
	assert.Equal(t, "R1", feed.Routes[0].ID)

	require.Len(t, feed.Calendars, 1)
	assert.Equal(t, "S1", feed.Calendars[0].ServiceID)

	require.Len(t, feed.Trips, 1, "the duplicate and the route-R2-referencing row are both dropped")
	assert.Equal(t, "t1", feed.Trips[0].ID)

	require.Len(t, feed.StopTimes, 2, "the row referencing an unknown stop_id is dropped")
	for _, st := range feed.StopTimes {
		assert.NotEqual(t, "nosuchstop", st.StopID)
	}
}

func TestParseStatic_MissingRequiredFileStillAborts(t *testing.T) {
	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"A1,Agency One,http://example.com,UTC\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_desc,route_type,route_url,route_color,route_text_color\n" +
			"R1,A1,1,Route One,,3,,,\n",
		"calendar.txt": "service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday\n" +
			"S1,20260101,20261231,1,1,1,1,1,1,1\n",
		// stops.txt and trips.txt and stop_times.txt intentionally missing
	}

	_, err := ParseStatic(testLogger(), buildBundle(t, files))
	assert.Error(t, err, "a missing required file is the one thing that still aborts the whole load")
}
