// Package timeutil implements the local-noon-anchored offset
// arithmetic used throughout the schedule store and reconciler. All
// static schedule times are stored as signed seconds relative to
// local noon of the service date, which keeps a 02:00 DST transition
// from shifting a nominally-timed stop (see spec.md §4.1).
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoTime mirrors model.NoTime; duplicated here (rather than imported)
// to keep this package free of a model dependency.
const NoTime = int32(-1 << 31)

// secondsAtNoon is the threshold an offset must reach to represent an
// "after midnight" (hh >= 24) trip time.
const secondsAtNoon = 12 * 3600

// OffsetFromHHMMSS parses a GTFS "HH:MM:SS" string (HH may exceed 23)
// into seconds relative to local noon. An empty string yields NoTime.
func OffsetFromHHMMSS(s string) (int32, error) {
	if s == "" {
		return NoTime, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timeutil: %q is not HH:MM:SS", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timeutil: bad hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("timeutil: bad minute in %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("timeutil: bad second in %q", s)
	}

	total := h*3600 + m*60 + sec
	return int32(total - secondsAtNoon), nil
}

// ToHHMMSS renders an offset back to GTFS "HH:MM:SS" form, the inverse
// of OffsetFromHHMMSS. Passing NoTime returns the empty string.
func ToHHMMSS(offset int32) string {
	if offset == NoTime {
		return ""
	}
	total := int(offset) + secondsAtNoon
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// IsNextActualDay reports whether an offset represents an
// after-midnight time (hh >= 24, i.e. offset >= 12h).
func IsNextActualDay(offset int32) bool {
	return offset >= secondsAtNoon
}

// LocalNoon returns local noon of the given service date (a
// "YYYYMMDD" string) in the given location.
func LocalNoon(serviceDate string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("20060102", serviceDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parsing service date %q: %w", serviceDate, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
}

// ToInstant converts a service date plus local-noon offset into an
// absolute instant in the agency's time zone, correctly picking up
// whatever DST offset applies on that calendar day.
func ToInstant(serviceDate string, offset int32, loc *time.Location) (time.Time, error) {
	if offset == NoTime {
		return time.Time{}, fmt.Errorf("timeutil: NoTime has no instant")
	}
	noon, err := LocalNoon(serviceDate, loc)
	if err != nil {
		return time.Time{}, err
	}
	return noon.Add(time.Duration(offset) * time.Second), nil
}

// ServiceWindow returns the three service-date strings (yesterday,
// today, tomorrow) that the reconciler must scan to account for
// after-midnight trips straddling the query's "now."
type ServiceWindow struct {
	Yesterday string
	Today     string
	Tomorrow  string
}

func ComputeServiceWindow(today time.Time) ServiceWindow {
	return ServiceWindow{
		Yesterday: today.AddDate(0, 0, -1).Format("20060102"),
		Today:     today.Format("20060102"),
		Tomorrow:  today.AddDate(0, 0, 1).Format("20060102"),
	}
}

// AddOffsetSeconds is a small helper used by the reconciler/realtime
// packages to shift an offset by a signed delay while keeping the
// NoTime sentinel sticky.
func AddOffsetSeconds(offset int32, delta int64) int32 {
	if offset == NoTime {
		return NoTime
	}
	return int32(int64(offset) + delta)
}
