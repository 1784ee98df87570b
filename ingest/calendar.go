package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/transitproc/gtfsproc/model"
)

type calendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

func weekdayBit(day time.Weekday, val int8) (int8, error) {
	if val == 1 {
		return 1 << day, nil
	}
	if val != 0 {
		return 0, fmt.Errorf("invalid weekday flag %d", val)
	}
	return 0, nil
}

// parseCalendar reads calendar.txt, appends each row to
// feed.Calendars, and returns the feed-wide min start_date and max
// end_date seen (the calendar's overall validity window). A malformed
// row (duplicate/empty service_id, illegal weekday flag, unparsable
// date) is logged and skipped rather than aborting the whole load.
func parseCalendar(log *slog.Logger, feed *RawFeed, r io.Reader) (string, string, error) {
	var rows []calendarCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return "", "", fmt.Errorf("unmarshaling calendar: %w", err)
	}

	known := map[string]bool{}
	var minDate, maxDate string

	for _, row := range rows {
		if row.ServiceID == "" {
			log.Warn("skipping calendar row with no service_id")
			continue
		}
		if known[row.ServiceID] {
			log.Warn("skipping calendar row with duplicate service_id", "service_id", row.ServiceID)
			continue
		}

		var weekday int8
		bad := false
		for day, val := range map[time.Weekday]int8{
			time.Monday:    row.Monday,
			time.Tuesday:   row.Tuesday,
			time.Wednesday: row.Wednesday,
			time.Thursday:  row.Thursday,
			time.Friday:    row.Friday,
			time.Saturday:  row.Saturday,
			time.Sunday:    row.Sunday,
		} {
			bit, err := weekdayBit(day, val)
			if err != nil {
				log.Warn("skipping calendar row with invalid weekday flag", "service_id", row.ServiceID, "error", err)
				bad = true
				break
			}
			weekday |= bit
		}
		if bad {
			continue
		}

		if _, err := time.ParseInLocation("20060102", row.StartDate, time.UTC); err != nil {
			log.Warn("skipping calendar row with unparsable start_date", "service_id", row.ServiceID, "start_date", row.StartDate)
			continue
		}
		if _, err := time.ParseInLocation("20060102", row.EndDate, time.UTC); err != nil {
			log.Warn("skipping calendar row with unparsable end_date", "service_id", row.ServiceID, "end_date", row.EndDate)
			continue
		}
		known[row.ServiceID] = true

		if minDate == "" || row.StartDate < minDate {
			minDate = row.StartDate
		}
		if maxDate == "" || row.EndDate > maxDate {
			maxDate = row.EndDate
		}

		feed.Calendars = append(feed.Calendars, model.Calendar{
			ServiceID: row.ServiceID,
			Weekday:   weekday,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
		})
	}

	return minDate, maxDate, nil
}
