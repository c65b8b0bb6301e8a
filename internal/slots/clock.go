// Package slots models bookable times of day and classifies them for a
// selected date.
package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClock is returned when a time string is not "h:mm AM/PM".
var ErrInvalidClock = errors.New("slots: invalid time of day")

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// ParseClock parses the 12-hour "h:mm AM/PM" form used on the wire.
// Leading zeros on the hour are accepted.
func ParseClock(value string) (Clock, error) {
	value = strings.TrimSpace(value)
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hm := strings.SplitN(parts[0], ":", 2)
	if len(hm) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil || hour < 1 || hour > 12 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil || len(hm[1]) != 2 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}

	switch strings.ToUpper(parts[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MustParseClock is ParseClock for package-level literals.
func MustParseClock(value string) Clock {
	c, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the 12-hour wire form, e.g. "1:00 PM".
func (c Clock) String() string {
	period := "AM"
	hour := c.Hour % 12
	if c.Hour >= 12 {
		period = "PM"
	}
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, c.Minute, period)
}

// Format24 renders "HH:MM".
func (c Clock) Format24() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Add shifts the clock by the given minutes, wrapping around midnight.
func (c Clock) Add(minutes int) Clock {
	total := (c.Minutes() + minutes) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return Clock{Hour: total / 60, Minute: total % 60}
}
