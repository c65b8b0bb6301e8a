package slots

import (
	"fmt"
	"strings"
)

// Policy names accepted by PolicyByName.
const (
	PolicyAdmin          = "admin"
	PolicyWidget         = "widget"
	PolicyWidgetExtended = "widget-extended"
)

// Policy is an ordered list of candidate slots for a day.
type Policy struct {
	name  string
	times []Clock
}

// NewPolicy builds a custom policy from clock values in display order.
func NewPolicy(name string, times ...Clock) Policy {
	cp := make([]Clock, len(times))
	copy(cp, times)
	return Policy{name: name, times: cp}
}

// HalfHourGrid is the admin scheduler grid, 00:00 through 23:30.
func HalfHourGrid() Policy {
	times := make([]Clock, 0, 48)
	for h := 0; h < 24; h++ {
		times = append(times, Clock{Hour: h}, Clock{Hour: h, Minute: 30})
	}
	return Policy{name: PolicyAdmin, times: times}
}

// WidgetSlots is the curated public widget list.
func WidgetSlots() Policy {
	return NewPolicy(PolicyWidget,
		Clock{Hour: 11},
		Clock{Hour: 13},
		Clock{Hour: 16},
		Clock{Hour: 19},
		Clock{Hour: 21},
	)
}

// WidgetExtendedSlots is the hourly 11 AM to 9 PM widget variant.
func WidgetExtendedSlots() Policy {
	times := make([]Clock, 0, 11)
	for h := 11; h <= 21; h++ {
		times = append(times, Clock{Hour: h})
	}
	return Policy{name: PolicyWidgetExtended, times: times}
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyAdmin, "half-hour":
		return HalfHourGrid(), nil
	case PolicyWidget, "":
		return WidgetSlots(), nil
	case PolicyWidgetExtended:
		return WidgetExtendedSlots(), nil
	default:
		return Policy{}, fmt.Errorf("slots: unknown policy %q", name)
	}
}

func (p Policy) Name() string { return p.name }

// Len is the number of candidate slots; a day with this many distinct
// bookings is fully booked.
func (p Policy) Len() int { return len(p.times) }

// Times returns a copy of the candidate clocks.
func (p Policy) Times() []Clock {
	out := make([]Clock, len(p.times))
	copy(out, p.times)
	return out
}
