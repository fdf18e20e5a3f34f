// Package calendar converts between proleptic Gregorian calendar dates and
// linear day or second counts.
//
// Day 0 is 0001-01-01 and second 0 is 0001-01-01 00:00:00. There is no time
// zone and no leap second; every day has exactly 86400 seconds.
package calendar

const (
	daysYear = 365

	yearsLeapCycle = 400
	yearsCentury   = 100
	yearsLeap      = 4

	daysLeapCycle = daysYear*yearsLeapCycle + yearsLeapCycle/4 - yearsLeapCycle/100 + yearsLeapCycle/400
	daysCentury   = daysYear*yearsCentury + yearsCentury/4 - yearsCentury/100 + yearsCentury/400
	daysLeap      = daysYear*yearsLeap + yearsLeap/4 - yearsLeap/100 + yearsLeap/400

	// SecondsPerDay is the length of one day in the linear second count.
	SecondsPerDay = 86400

	// MaxDay is the day count of 9999-12-31, the last date with a four
	// digit year.
	MaxDay = 3652058
	// MaxSecond is the second count of 9999-12-31 23:59:59.
	MaxSecond = (MaxDay+1)*SecondsPerDay - 1
)

// monthStart holds the zero-based day of year each month starts on in a
// common year.
var monthStart = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

const (
	daysJanuary  = 31
	daysFebruary = 59
)

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	if year%4 != 0 {
		return false
	}
	return year%100 != 0 || year%400 == 0
}

// DayFromYear returns the number of days from 0001-01-01 to January 1st of year.
func DayFromYear(year int) int {
	y := year - 1
	return daysYear*y + y/4 - y/100 + y/400
}

// DayFromDate returns the day count of the given date. month must be in
// [1, 12]; day is not range checked.
func DayFromDate(year, month, day int) int {
	result := DayFromYear(year) + monthStart[month-1] + day - 1
	if month >= 3 && IsLeap(year) {
		result++
	}
	return result
}

// YearFromDay returns the year containing the given day count.
func YearFromDay(days int) int {
	cycles := days / daysLeapCycle
	cycleRest := days % daysLeapCycle

	// the last day of a 400 year cycle belongs to the fourth century
	centInCycle := cycleRest / daysCentury
	centRest := cycleRest % daysCentury
	centRest += daysCentury * (centInCycle / (yearsLeapCycle / yearsCentury))
	centInCycle -= centInCycle / (yearsLeapCycle / yearsCentury)

	leapInCent := centRest / daysLeap
	leapRest := centRest % daysLeap

	yearInLeap := leapRest / daysYear
	yearInLeap -= yearInLeap / yearsLeap

	return yearsLeapCycle*cycles + yearsCentury*centInCycle + yearsLeap*leapInCent + yearInLeap + 1
}

// MonthOfYear returns the month (1-12) of a zero-based day of year.
func MonthOfYear(dayOfYear int, leap bool) int {
	d := dayOfYear
	if d < daysJanuary {
		return 1
	}
	if leap {
		d--
	}
	for month := 2; month <= 11; month++ {
		if d < monthStart[month] {
			return month
		}
	}
	return 12
}

// DayOfMonth returns the day of month (1-31) of a zero-based day of year.
func DayOfMonth(dayOfYear int, leap bool) int {
	d := dayOfYear
	if d < daysJanuary {
		return d + 1
	}
	if d < daysFebruary {
		return d - daysJanuary + 1
	}
	if leap {
		if d == daysFebruary {
			return 29
		}
		d--
	}
	month := 12
	for m := 3; m <= 11; m++ {
		if d < monthStart[m] {
			month = m
			break
		}
	}
	return d - monthStart[month-1] + 1
}

// DayOfYear returns the zero-based day within its year of a day count.
func DayOfYear(days int) int {
	return days - DayFromYear(YearFromDay(days))
}

// DateOf decomposes a day count into year, month and day.
func DateOf(days int) (year, month, day int) {
	year = YearFromDay(days)
	leap := IsLeap(year)
	dayOfYear := DayOfYear(days)
	return year, MonthOfYear(dayOfYear, leap), DayOfMonth(dayOfYear, leap)
}

// ValidDay reports whether a day count lies in 0001-01-01..9999-12-31.
func ValidDay(days int) bool {
	return days >= 0 && days <= MaxDay
}

// ValidSecond reports whether a second count lies in
// 0001-01-01 00:00:00..9999-12-31 23:59:59.
func ValidSecond(seconds int64) bool {
	return seconds >= 0 && seconds <= MaxSecond
}

// ValidYear reports whether year can be formatted with four digits.
func ValidYear(year int) bool {
	return year >= 1 && year <= 9999
}

// SecondFromTime returns the second of day for the given time of day.
func SecondFromTime(hour, minute, second int) int {
	return hour*60*60 + minute*60 + second
}

// DayFromSeconds returns the day count containing a second count.
func DayFromSeconds(seconds int64) int {
	return int(seconds / SecondsPerDay)
}

// SecondOfDay returns the second within its day of a second count.
func SecondOfDay(seconds int64) int {
	return int(seconds % SecondsPerDay)
}

// TimeOf decomposes a second of day into hour, minute and second.
func TimeOf(secondOfDay int) (hour, minute, second int) {
	return secondOfDay / 3600, secondOfDay / 60 % 60, secondOfDay % 60
}

// SecondFromDateTime returns the second count of the given date and time.
func SecondFromDateTime(year, month, day, hour, minute, second int) int64 {
	return int64(DayFromDate(year, month, day))*SecondsPerDay + int64(SecondFromTime(hour, minute, second))
}
