package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitStops(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitStops("a|b|c"))
	assert.Equal(t, []string{"a", "b"}, splitStops(" a | b |"))
	assert.Empty(t, splitStops(""))
}

func TestDayToken(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	d, err := dayToken("D", now, loc)
	assert.NoError(t, err)
	assert.Equal(t, "20260315", d)

	y, err := dayToken("y", now, loc)
	assert.NoError(t, err)
	assert.Equal(t, "20260314", y)

	tm, err := dayToken("T", now, loc)
	assert.NoError(t, err)
	assert.Equal(t, "20260316", tm)

	explicit, err := dayToken("01Apr2026", now, loc)
	assert.NoError(t, err)
	assert.Equal(t, "20260401", explicit)

	_, err = dayToken("nonsense", now, loc)
	assert.Error(t, err)
}

func TestConnectionArg(t *testing.T) {
	min, max, err := connectionArg("5")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), min)
	assert.Equal(t, int64(0), max, "no dash means unbounded above")

	min, max, err = connectionArg("5-20")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), min)
	assert.Equal(t, int64(20), max)

	_, _, err = connectionArg("20-5")
	assert.ErrorIs(t, err, errRangeInverted)

	_, _, err = connectionArg("abc")
	assert.Error(t, err)

	_, _, err = connectionArg("5-10-20")
	assert.ErrorIs(t, err, errTooManyDashes)
}

func TestLookaheadMinutes(t *testing.T) {
	n, err := lookaheadMinutes("0")
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)

	n, err = lookaheadMinutes("45")
	assert.NoError(t, err)
	assert.Equal(t, int32(45), n)

	_, err = lookaheadMinutes("-1")
	assert.Error(t, err, "negative look-ahead is rejected per boundary property 9")
}

func TestOnTimeDeltaMinutes(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	_, onTime := onTimeDeltaMinutes(base, base.Add(30*time.Second))
	assert.True(t, onTime, "within 60s counts as on-time")

	minutes, onTime := onTimeDeltaMinutes(base, base.Add(5*time.Minute))
	assert.False(t, onTime)
	assert.Equal(t, int64(5), minutes)

	minutes, onTime = onTimeDeltaMinutes(base, base.Add(-5*time.Minute))
	assert.False(t, onTime)
	assert.Equal(t, int64(-5), minutes)
}

func TestFormatMessageTime(t *testing.T) {
	ts := time.Date(2026, 3, 15, 13, 5, 9, 0, time.UTC)
	assert.Equal(t, "15-Mar-2026 13:05:09", formatMessageTime(ts, false))
	assert.Equal(t, "15-Mar-2026 01:05:09 pm", formatMessageTime(ts, true))
}
