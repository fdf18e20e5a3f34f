package value

import (
	"time"

	"github.com/asakusafw/asakusafw-sub019/pkg/calendar"
)

// DateOption holds a nullable date as a day count from 0001-01-01.
type DateOption struct{ scalar[int] }

// NewDate returns a DateOption holding the given date.
func NewDate(year, month, day int) *DateOption {
	return new(DateOption).Modify(calendar.DayFromDate(year, month, day))
}

func (o *DateOption) Kind() Kind { return KindDate }

// Modify sets the day count.
func (o *DateOption) Modify(days int) *DateOption {
	o.set(days)
	return o
}

// ModifyTime sets the value to the calendar date of t in its location.
func (o *DateOption) ModifyTime(t time.Time) *DateOption {
	return o.Modify(calendar.DayFromDate(t.Year(), int(t.Month()), t.Day()))
}

// Time returns the date as midnight UTC.
func (o *DateOption) Time() time.Time {
	year, month, day := calendar.DateOf(o.value)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DateTimeOption holds a nullable date and time as a second count from
// 0001-01-01 00:00:00.
type DateTimeOption struct{ scalar[int64] }

// NewDateTime returns a DateTimeOption holding the given date and time.
func NewDateTime(year, month, day, hour, minute, second int) *DateTimeOption {
	return new(DateTimeOption).Modify(calendar.SecondFromDateTime(year, month, day, hour, minute, second))
}

func (o *DateTimeOption) Kind() Kind { return KindDateTime }

// Modify sets the second count.
func (o *DateTimeOption) Modify(seconds int64) *DateTimeOption {
	o.set(seconds)
	return o
}

// ModifyTime sets the value to the wall clock of t in its location,
// truncated to seconds.
func (o *DateTimeOption) ModifyTime(t time.Time) *DateTimeOption {
	return o.Modify(calendar.SecondFromDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()))
}

// Time returns the value as a UTC wall clock.
func (o *DateTimeOption) Time() time.Time {
	year, month, day := calendar.DateOf(calendar.DayFromSeconds(o.value))
	hour, minute, second := calendar.TimeOf(calendar.SecondOfDay(o.value))
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}
