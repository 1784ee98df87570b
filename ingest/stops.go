package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gocarina/gocsv"
	"github.com/transitproc/gtfsproc/model"
)

type stopCSV struct {
	ID            string  `csv:"stop_id"`
	Name          string  `csv:"stop_name"`
	Desc          string  `csv:"stop_desc"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	LocationType  int8    `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
}

// parseStops reads stops.txt, appends each row to feed.Stops, and
// returns the set of known stop ids. parent_station references are
// checked after the full pass since forward references are legal. A
// malformed row (duplicate/empty stop_id, missing stop_name, unknown
// parent_station) is logged and skipped rather than aborting the
// whole load; a child row whose parent_station never resolves is
// dropped along with it.
func parseStops(log *slog.Logger, feed *RawFeed, r io.Reader) (map[string]bool, error) {
	var rows []stopCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling stops: %w", err)
	}

	ids := map[string]bool{}
	parentRef := map[string]string{}
	stops := make([]model.Stop, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			log.Warn("skipping stop with no stop_id")
			continue
		}
		if ids[row.ID] {
			log.Warn("skipping stop with duplicate stop_id", "stop_id", row.ID)
			continue
		}

		locationType := model.LocationType(row.LocationType)
		if locationType != model.LocationTypeGenericNode && locationType != model.LocationTypeBoardingArea {
			if row.Name == "" {
				log.Warn("skipping stop with no stop_name", "stop_id", row.ID)
				continue
			}
			if row.Lat == 0 || row.Lon == 0 {
				log.Warn("stop has no coordinates", "stop_id", row.ID)
			}
		}
		ids[row.ID] = true

		if row.ParentStation != "" {
			parentRef[row.ID] = row.ParentStation
		}

		stops = append(stops, model.Stop{
			ID:            row.ID,
			Name:          row.Name,
			Desc:          row.Desc,
			Lat:           row.Lat,
			Lon:           row.Lon,
			ParentStation: row.ParentStation,
			LocationType:  locationType,
		})
	}

	for i := range stops {
		parentID, hasParent := parentRef[stops[i].ID]
		if hasParent && !ids[parentID] {
			log.Warn("skipping stop referencing unknown parent_station", "stop_id", stops[i].ID, "parent_station", parentID)
			delete(ids, stops[i].ID)
			continue
		}
		feed.Stops = append(feed.Stops, stops[i])
	}

	return ids, nil
}
