package refresher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	p "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/transitproc/gtfsproc/downloader"
	"github.com/transitproc/gtfsproc/feedhistory"
)

// fakeDownloader returns bodies[url] or fails when fail is true,
// regardless of url.
type fakeDownloader struct {
	bodies map[string][]byte
	fail   bool
}

func (f *fakeDownloader) Get(_ context.Context, url string, _ map[string]string, _ downloader.GetOptions) ([]byte, error) {
	if f.fail {
		return nil, errors.New("fake downloader: induced failure")
	}
	return f.bodies[url], nil
}

func realtimeBody(t *testing.T) []byte {
	t.Helper()
	incrementality := p.FeedHeader_FULL_DATASET
	scheduled := p.TripDescriptor_SCHEDULED
	feed := &p.FeedMessage{
		Header: &p.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           proto.Uint64(1700000000),
		},
		Entity: []*p.FeedEntity{
			{
				Id: proto.String("t1"),
				TripUpdate: &p.TripUpdate{
					Trip: &p.TripDescriptor{TripId: proto.String("t1"), ScheduleRelationship: &scheduled},
				},
			},
		},
	}
	data, err := proto.Marshal(feed)
	require.NoError(t, err)
	return data
}

func newTestRefresher(urls []string, fail bool, body []byte) *Refresher {
	dl := &fakeDownloader{bodies: map[string][]byte{}, fail: fail}
	for _, u := range urls {
		dl.bodies[u] = body
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{RealtimeURLs: urls, RequestTimeout: time.Second}
	return New(cfg, log, dl, feedhistory.NewMemory())
}

func TestRefreshRealtime_InvalidatesOnDownloadFailure(t *testing.T) {
	urls := []string{"https://example.com/rt"}
	r := newTestRefresher(urls, false, realtimeBody(t))

	require.NoError(t, r.RefreshRealtime(context.Background()))
	require.NotNil(t, r.Realtime().Current(), "first successful refresh publishes a snapshot")

	r.downloader.(*fakeDownloader).fail = true
	err := r.RefreshRealtime(context.Background())
	require.Error(t, err)

	assert.Nil(t, r.Realtime().Current(), "a download failure against a non-local URL reverts the active side to NONE")
}

func TestRefreshRealtime_InvalidatesOnParseFailure(t *testing.T) {
	urls := []string{"https://example.com/rt"}
	r := newTestRefresher(urls, false, realtimeBody(t))

	require.NoError(t, r.RefreshRealtime(context.Background()))
	require.NotNil(t, r.Realtime().Current())

	r.downloader.(*fakeDownloader).bodies[urls[0]] = []byte("not a valid protobuf feed message at all, hopefully")
	err := r.RefreshRealtime(context.Background())
	require.Error(t, err)

	assert.Nil(t, r.Realtime().Current(), "an unparsable feed also reverts the active side to NONE")
}

func TestRefreshRealtime_LocalFileFailureKeepsLastGood(t *testing.T) {
	urls := []string{"/var/lib/gtfsproc/rt.pb"}
	r := newTestRefresher(urls, false, realtimeBody(t))

	require.NoError(t, r.RefreshRealtime(context.Background()))
	last := r.Realtime().Current()
	require.NotNil(t, last)

	r.downloader.(*fakeDownloader).fail = true
	err := r.RefreshRealtime(context.Background())
	require.Error(t, err)

	assert.Same(t, last, r.Realtime().Current(), "an all-local-file realtime config keeps the last-good snapshot on failure")
}

func TestRefreshRealtime_MixedLocalAndRemoteInvalidatesOnFailure(t *testing.T) {
	urls := []string{"/var/lib/gtfsproc/rt.pb", "https://example.com/rt"}
	r := newTestRefresher(urls, false, realtimeBody(t))

	require.NoError(t, r.RefreshRealtime(context.Background()))
	require.NotNil(t, r.Realtime().Current())

	r.downloader.(*fakeDownloader).fail = true
	err := r.RefreshRealtime(context.Background())
	require.Error(t, err)

	assert.Nil(t, r.Realtime().Current(), "even one non-local URL in the mix means a failure invalidates the store")
}
