package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

// requiredFiles must be present in every bundle; calendar.txt and
// calendar_dates.txt are interchangeable (at least one is required),
// per the GTFS spec and spec.md §4.2's "missing required column
// aborts load."
var requiredFiles = []string{"agency.txt", "routes.txt", "stops.txt", "trips.txt", "stop_times.txt"}

var wantedFiles = []string{
	"agency.txt", "routes.txt", "stops.txt", "trips.txt",
	"stop_times.txt", "calendar.txt", "calendar_dates.txt", "feed_info.txt",
}

// ParseStatic unzips buf and parses each GTFS CSV file into a RawFeed.
// Only a missing required file aborts the whole load. Column headers
// are not checked: a column absent from a file reads as empty on every
// row, which the row checks below then see. A malformed individual row (bad reference, unparsable field, missing
// required field) is logged and skipped by the per-file parsers so one
// bad row in a million-row stop_times.txt doesn't sink the feed.
func ParseStatic(log *slog.Logger, buf []byte) (*RawFeed, error) {
	files := map[string]io.ReadCloser{}
	for _, name := range wantedFiles {
		files[name] = nil
	}

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("ingest: unzipping bundle: %w", err)
	}

	defer func() {
		for _, rc := range files {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		parts := strings.Split(f.Name, "/")
		name := parts[len(parts)-1]
		if _, wanted := files[name]; !wanted {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("ingest: opening %s: %w", f.Name, err)
		}
		files[name] = rc
	}

	if files["calendar.txt"] == nil && files["calendar_dates.txt"] == nil {
		return nil, fmt.Errorf("ingest: missing both calendar.txt and calendar_dates.txt")
	}
	for _, name := range requiredFiles {
		if files[name] == nil {
			return nil, fmt.Errorf("ingest: missing required file %s", name)
		}
	}

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	feed := &RawFeed{}

	agencyIDs, timezone, err := parseAgency(log, feed, files["agency.txt"])
	if err != nil {
		return nil, fmt.Errorf("ingest: agency.txt: %w", err)
	}

	routeIDs, err := parseRoutes(log, feed, files["routes.txt"], agencyIDs)
	if err != nil {
		return nil, fmt.Errorf("ingest: routes.txt: %w", err)
	}

	serviceIDs := map[string]bool{}
	if files["calendar.txt"] != nil {
		cstart, cend, err := parseCalendar(log, feed, files["calendar.txt"])
		if err != nil {
			return nil, fmt.Errorf("ingest: calendar.txt: %w", err)
		}
		feed.Metadata.CalendarStartDate, feed.Metadata.CalendarEndDate = cstart, cend
		for _, c := range feed.Calendars {
			serviceIDs[c.ServiceID] = true
		}
	}
	if files["calendar_dates.txt"] != nil {
		minDate, maxDate, err := parseCalendarDates(log, feed, files["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("ingest: calendar_dates.txt: %w", err)
		}
		for _, e := range feed.Exceptions {
			serviceIDs[e.ServiceID] = true
		}
		if feed.Metadata.CalendarStartDate == "" || minDate < feed.Metadata.CalendarStartDate {
			feed.Metadata.CalendarStartDate = minDate
		}
		if feed.Metadata.CalendarEndDate == "" || maxDate > feed.Metadata.CalendarEndDate {
			feed.Metadata.CalendarEndDate = maxDate
		}
	}

	tripIDs, err := parseTrips(log, feed, files["trips.txt"], routeIDs, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("ingest: trips.txt: %w", err)
	}

	stopIDs, err := parseStops(log, feed, files["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("ingest: stops.txt: %w", err)
	}

	if err := parseStopTimes(log, feed, files["stop_times.txt"], tripIDs, stopIDs); err != nil {
		return nil, fmt.Errorf("ingest: stop_times.txt: %w", err)
	}

	if files["feed_info.txt"] != nil {
		parseFeedInfo(feed, files["feed_info.txt"])
	}

	feed.Metadata.Timezone = timezone

	return feed, nil
}
