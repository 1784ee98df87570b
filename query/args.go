package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/transitproc/gtfsproc/timeutil"
)

// splitStops splits a "|"-separated multi-stop argument into its
// component stop-ids, trimming whitespace and dropping empties.
func splitStops(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fields splits on runs of whitespace, same convention the teacher's
// own CLI argument handling uses.
func fields(s string) []string {
	return strings.Fields(s)
}

// dayToken resolves a day token (D=today, Y=yesterday, T=tomorrow, or
// an explicit ddMMMyyyy date) against loc's current date into a GTFS
// "YYYYMMDD" service-date string.
func dayToken(tok string, now time.Time, loc *time.Location) (string, error) {
	today := now.In(loc)
	switch strings.ToUpper(tok) {
	case "D":
		return today.Format("20060102"), nil
	case "Y":
		return today.AddDate(0, 0, -1).Format("20060102"), nil
	case "T":
		return today.AddDate(0, 0, 1).Format("20060102"), nil
	default:
		t, err := time.ParseInLocation("02Jan2006", tok, loc)
		if err != nil {
			return "", fmt.Errorf("query: invalid day token %q", tok)
		}
		return t.Format("20060102"), nil
	}
}

// connectionArg parses a "m" or "m-M" transfer-window token into
// minimum/maximum transfer minutes (max 0 means unbounded). A token
// with more than one dash is rejected outright, matching the original
// system's "only a minimum and maximum, ex: 1-5" validation.
func connectionArg(tok string) (minMinutes, maxMinutes int64, err error) {
	parts := strings.Split(tok, "-")
	switch len(parts) {
	case 1:
		min, convErr := strconv.ParseInt(parts[0], 10, 64)
		if convErr != nil || min < 0 {
			return 0, 0, fmt.Errorf("query: invalid transfer minutes %q", tok)
		}
		return min, 0, nil
	case 2:
		min, minErr := strconv.ParseInt(parts[0], 10, 64)
		max, maxErr := strconv.ParseInt(parts[1], 10, 64)
		if minErr != nil || min < 0 || maxErr != nil || max < 0 {
			return 0, 0, fmt.Errorf("query: invalid transfer minutes %q", tok)
		}
		if max < min {
			return 0, 0, errRangeInverted
		}
		return min, max, nil
	default:
		return 0, 0, errTooManyDashes
	}
}

var (
	errRangeInverted = fmt.Errorf("query: M < m in transfer window")
	errTooManyDashes = fmt.Errorf("query: at most one dash allowed in a transfer window")
)

// lookaheadMinutes parses a look-ahead argument: 0 disables the upper
// bound, negative values are rejected (§8 boundary property 9).
func lookaheadMinutes(s string) (int32, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("query: invalid look-ahead minutes %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("query: look-ahead minutes must be >= 0, got %d", n)
	}
	return int32(n), nil
}

// formatMessageTime renders t per spec.md §6: "dd-MMM-yyyy hh:mm:ss t"
// (12-hour clock with am/pm) when clock12Hour is set, otherwise a
// 24-hour rendering (§SPEC_FULL "12-hour clock formatting").
func formatMessageTime(t time.Time, clock12Hour bool) string {
	if clock12Hour {
		return t.Format("02-Jan-2006 03:04:05 pm")
	}
	return t.Format("02-Jan-2006 15:04:05")
}

// onTimeDeltaMinutes returns the signed minute delta between scheduled
// and predicted times, or 0/"on-time" when the absolute offset is
// within 60 seconds (§4.4 edge case).
func onTimeDeltaMinutes(scheduled, predicted time.Time) (minutes int64, onTime bool) {
	if scheduled.IsZero() || predicted.IsZero() {
		return 0, true
	}
	d := predicted.Sub(scheduled)
	if d < 0 {
		d = -d
	}
	if d <= 60*time.Second {
		return 0, true
	}
	return int64(predicted.Sub(scheduled).Minutes()), false
}

func serviceWindowFor(now time.Time, loc *time.Location) timeutil.ServiceWindow {
	return timeutil.ComputeServiceWindow(now.In(loc))
}

// timeOffsetString renders a local-noon offset as "HH:MM:SS", or the
// empty string for model.NoTime.
func timeOffsetString(offset int32) string {
	return timeutil.ToHHMMSS(offset)
}
