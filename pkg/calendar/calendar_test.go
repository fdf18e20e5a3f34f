package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unixEpochDay is 1970-01-01 as a day count.
const unixEpochDay = 719162

func TestDayFromDateFixedPoints(t *testing.T) {
	tests := []struct {
		name              string
		year, month, day int
		want              int
	}{
		{"first day", 1, 1, 1, 0},
		{"second day", 1, 1, 2, 1},
		{"first year end", 1, 12, 31, 364},
		{"unix epoch", 1970, 1, 1, unixEpochDay},
		{"y2k", 2000, 1, 1, 730119},
		{"leap day 2000", 2000, 2, 29, 730178},
		{"after leap day 2000", 2000, 3, 1, 730179},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayFromDate(tt.year, tt.month, tt.day))
		})
	}
}

func TestIsLeap(t *testing.T) {
	assert.True(t, IsLeap(4))
	assert.True(t, IsLeap(2000))
	assert.True(t, IsLeap(2024))
	assert.False(t, IsLeap(1900))
	assert.False(t, IsLeap(2001))
	assert.False(t, IsLeap(100))
	assert.True(t, IsLeap(400))
}

func TestDateOfRoundTrip(t *testing.T) {
	last := DayFromDate(9999, 12, 31)
	for days := 0; days <= last; days += 37 {
		year, month, day := DateOf(days)
		require.Equal(t, days, DayFromDate(year, month, day), "days=%d -> %04d-%02d-%02d", days, year, month, day)
	}
}

func TestDateOfMatchesTimePackage(t *testing.T) {
	for _, ts := range []time.Time{
		time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(100, time.March, 30, 0, 0, 0, 0, time.UTC),
		time.Date(400, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(1600, time.February, 29, 0, 0, 0, 0, time.UTC),
		time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, time.February, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2100, time.February, 28, 0, 0, 0, 0, time.UTC),
		time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
	} {
		days := unixEpochDay + int(ts.Unix()/SecondsPerDay)
		year, month, day := DateOf(days)
		assert.Equal(t, ts.Year(), year, ts.String())
		assert.Equal(t, int(ts.Month()), month, ts.String())
		assert.Equal(t, ts.Day(), day, ts.String())
	}
}

func TestYearBoundaries(t *testing.T) {
	for _, year := range []int{2, 4, 100, 399, 400, 401, 1600, 1999, 2000, 2001, 9999} {
		first := DayFromYear(year)
		assert.Equal(t, year, YearFromDay(first), "first day of %d", year)
		assert.Equal(t, year-1, YearFromDay(first-1), "last day before %d", year)
	}
}

func TestSeconds(t *testing.T) {
	seconds := SecondFromDateTime(2000, 2, 9, 1, 2, 3)
	assert.Equal(t, DayFromDate(2000, 2, 9), DayFromSeconds(seconds))
	assert.Equal(t, 3723, SecondOfDay(seconds))

	hour, minute, second := TimeOf(SecondOfDay(seconds))
	assert.Equal(t, []int{1, 2, 3}, []int{hour, minute, second})
	assert.Equal(t, 86399, SecondFromTime(23, 59, 59))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0001-01-01", FormatDate(0))
	assert.Equal(t, "1970-01-01", FormatDate(unixEpochDay))
	assert.Equal(t, "0100-03-30", FormatDate(DayFromDate(100, 3, 30)))
	assert.Equal(t, "9999-12-31", FormatDate(DayFromDate(9999, 12, 31)))
	assert.Equal(t, "2000-02-09 01:02:03", FormatDateTime(SecondFromDateTime(2000, 2, 9, 1, 2, 3)))
	assert.Equal(t, "9999-12-31 23:59:59", FormatDateTime(SecondFromDateTime(9999, 12, 31, 23, 59, 59)))
	assert.Equal(t, "0001-01-01 00:00:00", FormatDateTime(0))
}

func TestAppendPadded(t *testing.T) {
	assert.Equal(t, "0007", string(appendPadded(nil, 4, 7)))
	assert.Equal(t, "12345", string(appendPadded(nil, 4, 12345)))
	assert.Equal(t, "-07", string(appendPadded(nil, 3, -7)))
	assert.Equal(t, "00", string(appendPadded(nil, 2, 0)))
}

func TestParse(t *testing.T) {
	t.Run("date", func(t *testing.T) {
		assert.Equal(t, 0, ParseDate("0001-01-01"))
		assert.Equal(t, unixEpochDay, ParseDate("1970-01-01"))
		for _, bad := range []string{"", "1970-1-01", "1970/01/01", "0000-01-01", "1970-00-01", "1970-13-01", "1970-01-00", "19a0-01-01", "1970-01-011"} {
			assert.Equal(t, -1, ParseDate(bad), bad)
		}
	})

	t.Run("datetime", func(t *testing.T) {
		assert.Equal(t, SecondFromDateTime(2000, 2, 9, 1, 2, 3), ParseDateTime("2000-02-09 01:02:03"))
		assert.Equal(t, int64(0), ParseDateTime("0001-01-01 00:00:00"))
		for _, bad := range []string{"2000-02-09", "2000-02-09T01:02:03", "2000-02-09 01-02-03", "0000-00-00 00:00:00", "2000-02-09 0x:02:03"} {
			assert.Equal(t, int64(-1), ParseDateTime(bad), bad)
		}
	})
}

func TestDayOfYear(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		want             int
	}{
		{"first day", 1, 1, 1, 0},
		{"common year end", 1999, 12, 31, 364},
		{"leap day", 2000, 2, 29, 59},
		{"after leap day", 2000, 3, 1, 60},
		{"leap year end", 2000, 12, 31, 365},
		{"common march", 1900, 3, 1, 59},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayOfYear(DayFromDate(tt.year, tt.month, tt.day)))
		})
	}
}

func TestValidRange(t *testing.T) {
	assert.Equal(t, DayFromDate(9999, 12, 31), MaxDay)
	assert.Equal(t, SecondFromDateTime(9999, 12, 31, 23, 59, 59), int64(MaxSecond))

	assert.True(t, ValidDay(0))
	assert.True(t, ValidDay(MaxDay))
	assert.False(t, ValidDay(-1))
	assert.False(t, ValidDay(MaxDay+1))

	assert.True(t, ValidSecond(0))
	assert.True(t, ValidSecond(MaxSecond))
	assert.False(t, ValidSecond(-1))
	assert.False(t, ValidSecond(MaxSecond+1))

	assert.True(t, ValidYear(1))
	assert.True(t, ValidYear(9999))
	assert.False(t, ValidYear(0))
	assert.False(t, ValidYear(10000))
}
