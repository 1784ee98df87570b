package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gocarina/gocsv"
	"github.com/transitproc/gtfsproc/model"
)

type tripCSV struct {
	ID        string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	Headsign  string `csv:"trip_headsign"`
	ShortName string `csv:"trip_short_name"`
}

// parseTrips reads trips.txt, appends each row to feed.Trips, and
// returns the set of known trip ids for cross-checking by
// parseStopTimes. A malformed row (duplicate/empty trip_id, unknown
// route_id or service_id) is logged and skipped rather than aborting
// the whole load.
func parseTrips(log *slog.Logger, feed *RawFeed, r io.Reader, routes, services map[string]bool) (map[string]bool, error) {
	var rows []tripCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling trips: %w", err)
	}

	ids := map[string]bool{}
	for _, row := range rows {
		if row.ID == "" {
			log.Warn("skipping trip with no trip_id")
			continue
		}
		if ids[row.ID] {
			log.Warn("skipping trip with duplicate trip_id", "trip_id", row.ID)
			continue
		}
		if row.RouteID == "" || !routes[row.RouteID] {
			log.Warn("skipping trip with missing or unknown route_id", "trip_id", row.ID, "route_id", row.RouteID)
			continue
		}
		if !services[row.ServiceID] {
			log.Warn("skipping trip with unknown service_id", "trip_id", row.ID, "service_id", row.ServiceID)
			continue
		}
		ids[row.ID] = true

		feed.Trips = append(feed.Trips, model.Trip{
			ID:        row.ID,
			RouteID:   row.RouteID,
			ServiceID: row.ServiceID,
			Headsign:  row.Headsign,
			ShortName: row.ShortName,
		})
	}
	return ids, nil
}
