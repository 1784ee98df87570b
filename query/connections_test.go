package query

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitproc/gtfsproc/config"
	"github.com/transitproc/gtfsproc/downloader"
	"github.com/transitproc/gtfsproc/feedhistory"
	"github.com/transitproc/gtfsproc/refresher"
)

// staticDownloader serves a single canned static bundle regardless of
// the requested URL, so tests can drive refresher.RefreshStatic
// without a network.
type staticDownloader struct {
	body []byte
}

func (d *staticDownloader) Get(context.Context, string, map[string]string, downloader.GetOptions) ([]byte, error) {
	return d.body, nil
}

// buildStaticZip assembles a minimal but complete GTFS bundle: one
// route, one calendar running every day, two stops, and one trip
// connecting them, so connection-search argument validation has a
// real store to validate stop-ids against.
func buildStaticZip(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"A1,Agency One,http://example.com,UTC\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_desc,route_type,route_url,route_color,route_text_color\n" +
			"R1,A1,1,Route One,,3,,,\n",
		"calendar.txt": "service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday\n" +
			"S1,20260101,20261231,1,1,1,1,1,1,1\n",
		"stops.txt": "stop_id,stop_name,stop_desc,stop_lat,stop_lon,location_type,parent_station\n" +
			"s1,Stop One,,1.0,1.0,0,\n" +
			"s2,Stop Two,,2.0,2.0,0,\n",
		"trips.txt": "trip_id,route_id,service_id,trip_headsign,trip_short_name\n" +
			"t1,R1,S1,,\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time,stop_headsign,shape_dist_traveled,pickup_type,drop_off_type\n" +
			"t1,s1,1,08:00:00,08:00:00,,,,\n" +
			"t1,s2,2,08:10:00,08:10:00,,,,\n",
	}

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

// newTestEngine builds an Engine wired to a Refresher whose static
// store holds buildStaticZip's fixture.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dl := &staticDownloader{body: buildStaticZip(t)}
	rf := refresher.New(refresher.Config{StaticURL: "https://example.com/static.zip", RequestTimeout: time.Second}, log, dl, feedhistory.NewMemory())
	require.NoError(t, rf.RefreshStatic(context.Background()))

	now := time.Date(2026, 3, 15, 7, 0, 0, 0, time.UTC)
	return NewEngine(config.Config{}, rf, feedhistory.NewMemory(), func() time.Time { return now })
}

func TestConnections_PipeIsTheArgumentDelimiter(t *testing.T) {
	e := newTestEngine(t)
	_, code := e.EES("60 s1|s2")
	assert.Equal(t, 0, code, "a pipe-delimited origin|destination pair is well-formed regardless of whether a path is found")
}

func TestConnections_CommaIsNotADelimiter(t *testing.T) {
	e := newTestEngine(t)
	// A comma-joined pair collapses to a single argument token since
	// commas are no longer a recognized separator, which fails the
	// 2-or-(2+3k) argument count check rather than resolving as two
	// stop-ids.
	_, code := e.EES("60 s1,s2")
	assert.Equal(t, ErrConnBadArgCount, code)
}

func TestConnections_UnknownStopIsRejected(t *testing.T) {
	e := newTestEngine(t)
	_, code := e.EES("60 s1|nosuchstop")
	assert.Equal(t, ErrConnUnknownStop, code)
}

func TestConnections_TooManyDashesInTransferWindow(t *testing.T) {
	e := newTestEngine(t)
	_, code := e.EES("60 s1|s2|1-2-3|s1|s2")
	assert.Equal(t, ErrConnTooManyDashes, code)
}

func TestConnections_InvertedTransferRange(t *testing.T) {
	e := newTestEngine(t)
	_, code := e.EES("60 s1|s2|5-1|s1|s2")
	assert.Equal(t, ErrConnRangeInverted, code)
}

func TestConnections_ZeroResultsIsNotAnError(t *testing.T) {
	e := newTestEngine(t)
	result, code := e.EES("60 s2|s1")
	assert.Equal(t, 0, code, "no itinerary found is a successful empty response, not an error code")
	require.NotNil(t, result)
}

func TestConnections_SeededSearchToleratesUnknownTripID(t *testing.T) {
	e := newTestEngine(t)
	_, code := e.ETS("60 no-such-trip|s2")
	assert.Equal(t, 0, code, "an unresolvable seed trip-id is not an argument error; the original system just returns a null current_trip")
}
