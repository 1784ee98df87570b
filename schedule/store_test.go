package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transitproc/gtfsproc/model"
)

func TestInterpolate_DistanceProportional(t *testing.T) {
	stopTimes := []model.StopTime{
		{StopSequence: 1, Arrival: 0, Departure: 0, ShapeDistance: 0, HasShapeDist: true},
		{StopSequence: 2, Interpolated: true, ShapeDistance: 25, HasShapeDist: true},
		{StopSequence: 3, Interpolated: true, ShapeDistance: 75, HasShapeDist: true},
		{StopSequence: 4, Arrival: 400, Departure: 400, ShapeDistance: 100, HasShapeDist: true},
	}

	got := interpolate(stopTimes)

	assert.Equal(t, int32(100), got[1].Arrival, "25%% of the way between 0 and 400")
	assert.Equal(t, int32(100), got[1].Departure)
	assert.Equal(t, int32(300), got[2].Arrival, "75%% of the way between 0 and 400")
	assert.Equal(t, int32(300), got[2].Departure)
}

func TestInterpolate_SkippedWithoutFullShapeDistCoverage(t *testing.T) {
	stopTimes := []model.StopTime{
		{StopSequence: 1, Arrival: 0, Departure: 0, ShapeDistance: 0, HasShapeDist: true},
		{StopSequence: 2, Interpolated: true, ShapeDistance: 25, HasShapeDist: false},
		{StopSequence: 3, Arrival: 400, Departure: 400, ShapeDistance: 100, HasShapeDist: true},
	}

	got := interpolate(stopTimes)

	assert.False(t, got[1].Interpolated, "interpolation flag is cleared when any stop_time in the trip lacks shape_dist_traveled")
	assert.Equal(t, int32(0), got[1].Arrival, "uninterpolated stop_times are left untouched")
}

func TestInterpolate_NoInterpolatedStopsIsANoop(t *testing.T) {
	stopTimes := []model.StopTime{
		{StopSequence: 1, Arrival: 0, Departure: 0, ShapeDistance: 0, HasShapeDist: true},
		{StopSequence: 2, Arrival: 200, Departure: 200, ShapeDistance: 50, HasShapeDist: true},
	}

	got := interpolate(stopTimes)
	assert.Equal(t, stopTimes, got)
}

func TestDepartureAt_SkipsNoTimeSentinel(t *testing.T) {
	rec := tripRecord{stopTimes: []model.StopTime{
		{StopSequence: 1, Arrival: 0, Departure: 0},
		{StopSequence: 2, Arrival: model.NoTime, Departure: model.NoTime},
		{StopSequence: 3, Arrival: 400, Departure: 410},
	}}

	assert.Equal(t, int32(410), departureAt(rec, 2), "scans past the NO_TIME stop to the next timed one")
	assert.Equal(t, int32(0), departureAt(rec, 1), "exact match returns its own departure")
	assert.Equal(t, int32(0), departureAt(rec, 4), "nothing at or after seq returns 0")
}

func TestDepartureAt_FallsBackToArrivalWhenDepartureIsNoTime(t *testing.T) {
	rec := tripRecord{stopTimes: []model.StopTime{
		{StopSequence: 1, Arrival: 100, Departure: model.NoTime},
	}}

	assert.Equal(t, int32(100), departureAt(rec, 1))
}
