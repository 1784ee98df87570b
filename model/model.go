// Package model holds the external facing GTFS entity types shared by
// ingestion, the schedule store, and the reconciler.
package model

import "time"

type LocationType int8

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway     RouteType = 1
	RouteTypeRail       RouteType = 2
	RouteTypeBus        RouteType = 3
	RouteTypeFerry      RouteType = 4
	RouteTypeCable      RouteType = 5
	RouteTypeAerial     RouteType = 6
	RouteTypeFunicular  RouteType = 7
	RouteTypeTrolleybus RouteType = 11
	RouteTypeMonorail   RouteType = 12
)

// PickupDropoffType is shared by StopTime.PickupType and DropoffType.
type PickupDropoffType int8

const (
	PickupDropoffRegular PickupDropoffType = 0
	PickupDropoffNone    PickupDropoffType = 1
	PickupDropoffAgency  PickupDropoffType = 2
	PickupDropoffDriver  PickupDropoffType = 3
)

type ExceptionType int8

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

// NoTime is the sentinel for an absent arrival/departure offset. Real
// offsets are always >= -43200 (midnight of the day before noon), so
// this value can never collide with a legal one.
const NoTime = int32(-1 << 31)

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
}

// FeedMetadata carries feed_info.txt/agency.txt derived facts plus the
// calendar validity window. Dates are GTFS "YYYYMMDD" strings
// throughout, kept comparable as strings until a timezone is known.
type FeedMetadata struct {
	Publisher         string
	Version           string
	Timezone          string
	CalendarStartDate string
	CalendarEndDate   string
	RetrievedAt       time.Time
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Desc      string
	Type      RouteType
	URL       string
	Color     string
	TextColor string
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	Headsign  string
	ShortName string
}

// StopTime offsets are signed seconds relative to local noon of the
// service date (see package timeutil). model.NoTime marks an absent
// time.
type StopTime struct {
	TripID        string
	StopSequence  uint32
	StopID        string
	Arrival       int32
	Departure     int32
	PickupType    PickupDropoffType
	DropoffType   PickupDropoffType
	Headsign      string
	ShapeDistance float64
	HasShapeDist  bool
	Interpolated  bool
}

type Stop struct {
	ID            string
	Name          string
	Desc          string
	Lat           float64
	Lon           float64
	ParentStation string
	LocationType  LocationType
}

// Calendar is a service-id's weekday bitmap and validity range.
// Weekday bit i (1<<time.Weekday) is set if the service runs that
// weekday.
type Calendar struct {
	ServiceID string
	Weekday   int8
	StartDate string
	EndDate   string
}

type CalendarException struct {
	ServiceID string
	Date      string
	Type      ExceptionType
}
