package calendar

import "strconv"

const (
	dateSeparator     = '-'
	dateTimeSeparator = ' '
	timeSeparator     = ':'
)

// column layout of "YYYY-MM-DD HH:MM:SS"
const (
	colYearEnd    = 4
	colMonthBegin = colYearEnd + 1
	colMonthEnd   = colMonthBegin + 2
	colDayBegin   = colMonthEnd + 1
	colDayEnd     = colDayBegin + 2
	colHourBegin  = colDayEnd + 1
	colHourEnd    = colHourBegin + 2
	colMinBegin   = colHourEnd + 1
	colMinEnd     = colMinBegin + 2
	colSecBegin   = colMinEnd + 1
	colSecEnd     = colSecBegin + 2

	// DateLength is the length of a formatted date.
	DateLength = colDayEnd
	// DateTimeLength is the length of a formatted date and time.
	DateTimeLength = colSecEnd
)

// AppendDate appends the day count formatted as YYYY-MM-DD to buf. days
// must satisfy ValidDay; other values do not parse back.
func AppendDate(buf []byte, days int) []byte {
	year, month, day := DateOf(days)
	buf = appendPadded(buf, 4, year)
	buf = append(buf, dateSeparator)
	buf = appendPadded(buf, 2, month)
	buf = append(buf, dateSeparator)
	return appendPadded(buf, 2, day)
}

// AppendDateTime appends the second count formatted as YYYY-MM-DD HH:MM:SS
// to buf. seconds must satisfy ValidSecond.
func AppendDateTime(buf []byte, seconds int64) []byte {
	buf = AppendDate(buf, DayFromSeconds(seconds))
	buf = append(buf, dateTimeSeparator)
	hour, minute, second := TimeOf(SecondOfDay(seconds))
	buf = appendPadded(buf, 2, hour)
	buf = append(buf, timeSeparator)
	buf = appendPadded(buf, 2, minute)
	buf = append(buf, timeSeparator)
	return appendPadded(buf, 2, second)
}

// FormatDate returns the day count formatted as YYYY-MM-DD.
func FormatDate(days int) string {
	return string(AppendDate(make([]byte, 0, DateLength), days))
}

// FormatDateTime returns the second count formatted as YYYY-MM-DD HH:MM:SS.
func FormatDateTime(seconds int64) string {
	return string(AppendDateTime(make([]byte, 0, DateTimeLength), seconds))
}

// ParseDate parses YYYY-MM-DD and returns its day count, or -1 if value is
// not a valid date.
func ParseDate(value string) int {
	if len(value) != colDayEnd || value[colYearEnd] != dateSeparator || value[colMonthEnd] != dateSeparator {
		return -1
	}
	year := parseDigits(value, 0, colYearEnd)
	month := parseDigits(value, colMonthBegin, colMonthEnd)
	day := parseDigits(value, colDayBegin, colDayEnd)
	if year <= 0 || month <= 0 || month > 12 || day <= 0 {
		return -1
	}
	return DayFromDate(year, month, day)
}

// ParseDateTime parses YYYY-MM-DD HH:MM:SS and returns its second count, or
// -1 if value is not a valid date and time. Characters after the seconds
// column are ignored.
func ParseDateTime(value string) int64 {
	if len(value) < colSecEnd ||
		value[colYearEnd] != dateSeparator ||
		value[colMonthEnd] != dateSeparator ||
		value[colDayEnd] != dateTimeSeparator ||
		value[colHourEnd] != timeSeparator ||
		value[colMinEnd] != timeSeparator {
		return -1
	}
	year := parseDigits(value, 0, colYearEnd)
	month := parseDigits(value, colMonthBegin, colMonthEnd)
	day := parseDigits(value, colDayBegin, colDayEnd)
	hour := parseDigits(value, colHourBegin, colHourEnd)
	minute := parseDigits(value, colMinBegin, colMinEnd)
	second := parseDigits(value, colSecBegin, colSecEnd)
	if year <= 0 || month <= 0 || month > 12 || day <= 0 || hour < 0 || minute < 0 || second < 0 {
		return -1
	}
	return SecondFromDateTime(year, month, day, hour, minute, second)
}

func parseDigits(s string, begin, end int) int {
	result := 0
	for i := begin; i < end; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return -1
		}
		result = result*10 + int(c-'0')
	}
	return result
}

// appendPadded appends v in decimal, zero padded to width columns including
// the sign of negative values.
func appendPadded(buf []byte, width int, v int) []byte {
	u := uint64(v)
	if v < 0 {
		buf = append(buf, '-')
		width--
		u = uint64(-int64(v))
	}
	n := 1
	for x := u; x >= 10; x /= 10 {
		n++
	}
	for ; n < width; n++ {
		buf = append(buf, '0')
	}
	return strconv.AppendUint(buf, u, 10)
}
