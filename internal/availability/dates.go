// Package availability derives booked and blocked slots from existing
// appointments.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-day key format.
const DayLayout = "2006-01-02"

// ErrInvalidDate is returned when an appointment date cannot be parsed.
var ErrInvalidDate = errors.New("availability: invalid date")

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	DayLayout,
	"January 2, 2006",
	"Jan 2, 2006",
	"Mon Jan 02 2006",
}

// ParseDate parses an appointment date as stored on the wire. Values carrying
// an offset keep it; bare dates are read in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// DayKey formats t's calendar day as seen from loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// CalendarDay returns midnight in loc of the calendar day that date carries in
// its own location. Used for dates picked from a calendar.
func CalendarDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RawDayKey parses raw and returns its day key in loc.
func RawDayKey(raw string, loc *time.Location) (string, bool) {
	t, err := ParseDate(raw, loc)
	if err != nil {
		return "", false
	}
	return DayKey(t, loc), true
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
