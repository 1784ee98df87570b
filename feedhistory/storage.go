// Package feedhistory persists the provenance of every static and
// realtime feed fetch: when it was retrieved, its content hash, and
// whether it parsed successfully. It never stores GTFS entities
// themselves — those live only in the in-memory schedule.Store and
// realtimestore.Store — this package exists purely so an operator can
// ask "when did this feed last change" or "how often is the realtime
// feed failing to parse" after a restart.
package feedhistory

import (
	"context"
	"time"
)

// FeedKind distinguishes a static bundle fetch from a realtime
// fetch, since the two have very different refresh cadences.
type FeedKind string

const (
	KindStatic    FeedKind = "static"
	KindRealtime  FeedKind = "realtime"
)

// Record is one fetch attempt, successful or not.
type Record struct {
	ID          int64
	Kind        FeedKind
	URL         string
	SHA256      string
	RetrievedAt time.Time
	DownloadMS  int64
	ParseMS     int64
	Success     bool
	Error       string
}

// Store records and queries feed fetch history.
type Store interface {
	Record(ctx context.Context, rec Record) error
	// Recent returns the most recent records of kind, newest first,
	// bounded to limit rows (0 means a backend-defined default).
	Recent(ctx context.Context, kind FeedKind, limit int) ([]Record, error)
	// LastSuccess returns the most recent successful fetch of kind,
	// or ok=false if none is on record.
	LastSuccess(ctx context.Context, kind FeedKind) (Record, bool, error)
	Close() error
}
