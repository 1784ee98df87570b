// Package reconcile implements the Trip-Stop Reconciliation algorithm:
// merging the static Schedule Store with the realtime Store into a
// per-stop view of upcoming service, and the multi-leg Connection
// Search built on top of it.
package reconcile

import "time"

// TripStatus is the reconciled status of one trip at one stop,
// computed from the static schedule plus whatever realtime data (if
// any) exists for the trip.
type TripStatus int

const (
	// StatusSchedule: trip appears only in the static schedule; no
	// realtime data is associated with it at all.
	StatusSchedule TripStatus = iota
	// StatusNoSchedule: trip has no static schedule time at this
	// stop_sequence and also no realtime data; it is effectively
	// unknown.
	StatusNoSchedule
	// StatusIrrelevant: trip is outside the requested lookahead
	// window or has already fully departed; should not appear.
	StatusIrrelevant
	// StatusArrive: trip is arriving at the stop (at most
	// Reconciler.ArriveThreshold out, 30s by default).
	StatusArrive
	// StatusBoard: current time is between scheduled/predicted
	// arrival and departure.
	StatusBoard
	// StatusDepart: trip has departed this stop but still appears in
	// the realtime feed (e.g. for display purposes).
	StatusDepart
	// StatusRunning: trip is running normally, not skipping this
	// stop, not cancelled.
	StatusRunning
	// StatusSkip: realtime feed marks this stop as explicitly
	// skipped for the trip.
	StatusSkip
	// StatusCancel: trip is cancelled and serves no stop.
	StatusCancel
)

// StopStatus is the 4-letter validity code attached to a trip's
// realtime offset at a stop, telling the caller how much to trust
// realTimeOffsetSec.
type StopStatus string

const (
	StopStatusSchedule    StopStatus = "SCHD" // pure schedule, no realtime
	StopStatusPredicted   StopStatus = "PRED" // realtime prediction with no scheduled counterpart; not assigned by Reconciler
	StopStatusFull        StopStatus = "FULL" // realtime delay for this stop applied to its scheduled times
	StopStatusSupplemental StopStatus = "SPLM" // realtime-only stop not in static schedule
)

// StopTripRecord is one trip's reconciled service at one stop_id: the
// unit returned for "what's coming to this stop" queries.
type StopTripRecord struct {
	TripID            string
	RouteID           string
	ServiceDate       string // GTFS "YYYYMMDD" of the trip instance
	Status            TripStatus
	StopStatus        StopStatus
	RealTimeAvailable bool
	RealTimeOffsetSec int64 // schedule deviation, seconds (positive = late)

	ScheduledArrival   time.Time
	ScheduledDeparture time.Time
	PredictedArrival   time.Time
	PredictedDeparture time.Time

	WaitTimeSec int64

	Headsign        string
	PickupType      int8
	DropoffType     int8
	StopSequence    uint32
	StopID          string
	BeginningOfTrip bool
	EndOfTrip       bool
	VehicleID       string
}

// RouteStopRecords groups a stop's reconciled trips by route, mirroring
// how SDS/NEX-style responses present "what's coming, grouped by
// route, to this platform."
type RouteStopRecords struct {
	RouteID      string
	ShortName    string
	LongName     string
	Color        string
	TextColor    string
	Trips        []StopTripRecord
}
