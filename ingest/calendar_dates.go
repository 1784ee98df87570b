package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/transitproc/gtfsproc/model"
)

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

// parseCalendarDates reads calendar_dates.txt, appends each row to
// feed.Exceptions, and returns the min/max date seen. A malformed row
// (illegal exception_type, unparsable date, duplicate service/date
// pair) is logged and skipped rather than aborting the whole load.
func parseCalendarDates(log *slog.Logger, feed *RawFeed, r io.Reader) (string, string, error) {
	var rows []calendarDateCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return "", "", fmt.Errorf("unmarshaling calendar_dates: %w", err)
	}

	seen := map[string]bool{}
	var minDate, maxDate string

	for _, row := range rows {
		if row.ExceptionType < 1 || row.ExceptionType > 2 {
			log.Warn("skipping calendar_dates row with illegal exception_type", "service_id", row.ServiceID, "exception_type", row.ExceptionType)
			continue
		}
		if _, err := time.ParseInLocation("20060102", row.Date, time.UTC); err != nil {
			log.Warn("skipping calendar_dates row with unparsable date", "service_id", row.ServiceID, "date", row.Date)
			continue
		}

		key := row.ServiceID + "/" + row.Date
		if seen[key] {
			log.Warn("skipping calendar_dates row with duplicate service/date", "service_id", row.ServiceID, "date", row.Date)
			continue
		}
		seen[key] = true

		if minDate == "" || row.Date < minDate {
			minDate = row.Date
		}
		if maxDate == "" || row.Date > maxDate {
			maxDate = row.Date
		}

		feed.Exceptions = append(feed.Exceptions, model.CalendarException{
			ServiceID: row.ServiceID,
			Date:      row.Date,
			Type:      model.ExceptionType(row.ExceptionType),
		})
	}

	return minDate, maxDate, nil
}
