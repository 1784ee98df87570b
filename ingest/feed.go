// Package ingest parses a static GTFS bundle (a zip of CSV files) into
// plain in-memory records. It is a pure adapter: GTFS's column-order
// and optional-column quirks stop here, and package schedule never
// sees a CSV row.
package ingest

import "github.com/transitproc/gtfsproc/model"

// RawFeed is the complete set of rows read from one static bundle,
// prior to any cross-linking or indexing. schedule.Build consumes
// this to produce the queryable Store.
type RawFeed struct {
	Metadata  model.FeedMetadata
	Agencies  []model.Agency
	Routes    []model.Route
	Stops     []model.Stop
	Trips     []model.Trip
	StopTimes []model.StopTime
	Calendars []model.Calendar
	Exceptions []model.CalendarException
}
