package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gocarina/gocsv"
	"github.com/transitproc/gtfsproc/model"
)

type agencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
}

// parseAgency reads agency.txt, appends each row to feed.Agencies, and
// returns the set of known agency ids plus the feed's timezone (taken
// from the first row, per GTFS's single-timezone-per-feed convention).
func parseAgency(log *slog.Logger, feed *RawFeed, r io.Reader) (map[string]bool, string, error) {
	var rows []agencyCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, "", fmt.Errorf("parsing agency.txt: %w", err)
	}

	ids := map[string]bool{}
	timezone := ""
	for i, row := range rows {
		if row.Name == "" || row.Timezone == "" {
			log.Warn("skipping agency row missing agency_name or agency_timezone", "row", i+1)
			continue
		}
		if row.ID == "" && len(rows) > 1 {
			log.Warn("skipping agency row missing agency_id in a multi-agency feed", "row", i+1)
			continue
		}
		if timezone == "" {
			timezone = row.Timezone
		}
		ids[row.ID] = true
		feed.Agencies = append(feed.Agencies, model.Agency{
			ID:       row.ID,
			Name:     row.Name,
			URL:      row.URL,
			Timezone: row.Timezone,
		})
	}
	return ids, timezone, nil
}
