package availability

import (
	"sort"
	"time"

	"github.com/wolfman30/muvance-crm/internal/slots"
)

// AdjacencyMinutes is the look-ahead used by the widget exclusion rule.
const AdjacencyMinutes = 30

// Booking is the projection of an appointment the engine needs.
type Booking struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// BookedTimesForDate returns the times booked on date's calendar day. Days are
// compared as calendar-day strings in loc; unparsable dates never match.
func BookedTimesForDate(bookings []Booking, date time.Time, loc *time.Location) slots.TimeSet {
	if loc == nil {
		loc = time.UTC
	}
	target := CalendarDay(date, loc).Format(DayLayout)
	out := slots.NewTimeSet()
	for _, b := range bookings {
		if key, ok := RawDayKey(b.Date, loc); ok && key == target {
			out.Add(b.Time)
		}
	}
	return out
}

// BookedTimesByDay groups booked times by day key.
func BookedTimesByDay(bookings []Booking, loc *time.Location) map[string]slots.TimeSet {
	out := make(map[string]slots.TimeSet)
	for _, b := range bookings {
		key, ok := RawDayKey(b.Date, loc)
		if !ok {
			continue
		}
		set, exists := out[key]
		if !exists {
			set = slots.NewTimeSet()
			out[key] = set
		}
		set.Add(b.Time)
	}
	return out
}

// FullyBookedDates returns the sorted days of month whose count of distinct
// booked times reaches the policy's slot count.
func FullyBookedDates(bookings []Booking, year int, month time.Month, policy slots.Policy, loc *time.Location) []int {
	if loc == nil {
		loc = time.UTC
	}
	byDay := BookedTimesByDay(bookings, loc)
	var days []int
	for d := 1; d <= DaysIn(year, month); d++ {
		key := time.Date(year, month, d, 0, 0, 0, 0, loc).Format(DayLayout)
		if set, ok := byDay[key]; ok && policy.Len() > 0 && set.Len() >= policy.Len() {
			days = append(days, d)
		}
	}
	sort.Ints(days)
	return days
}

// HasBookingThirtyMinutesLater reports whether candidate+30min is booked.
// Only the later neighbour is checked; the earlier one is not.
func HasBookingThirtyMinutesLater(booked slots.TimeSet, candidate string) bool {
	c, err := slots.ParseClock(candidate)
	if err != nil {
		return false
	}
	return booked.Has(c.Add(AdjacencyMinutes).String())
}

// Engine applies a slot policy, a calendar location and the optional
// adjacency rule to a booking snapshot.
type Engine struct {
	policy       slots.Policy
	loc          *time.Location
	adjacentRule bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithThirtyMinuteRule toggles blocking slots that have a booking 30 minutes
// later.
func WithThirtyMinuteRule(enabled bool) Option {
	return func(e *Engine) { e.adjacentRule = enabled }
}

// WithLocation sets the calendar location used for day comparisons.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine builds an engine for policy. Defaults: UTC, rule off.
func NewEngine(policy slots.Policy, opts ...Option) *Engine {
	e := &Engine{policy: policy, loc: time.UTC}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() slots.Policy { return e.policy }
func (e *Engine) Location() *time.Location { return e.loc }
func (e *Engine) ThirtyMinuteRule() bool { return e.adjacentRule }

// BookedTimes is BookedTimesForDate in the engine location.
func (e *Engine) BookedTimes(bookings []Booking, date time.Time) slots.TimeSet {
	return BookedTimesForDate(bookings, date, e.loc)
}

// Slots classifies the policy's slots for date against the bookings.
func (e *Engine) Slots(bookings []Booking, date, now time.Time) []slots.Slot {
	return e.SlotsFor(e.BookedTimes(bookings, date), date, now)
}

// SlotsFor classifies slots from an already computed booked set. now is read
// once by the caller and shared by every comparison.
func (e *Engine) SlotsFor(booked slots.TimeSet, date, now time.Time) []slots.Slot {
	var day time.Time
	if !date.IsZero() {
		day = CalendarDay(date, e.loc)
	}
	out := slots.Generate(e.policy, booked, day, now)
	if !e.adjacentRule {
		return out
	}
	for i := range out {
		if HasBookingThirtyMinutesLater(booked, out[i].Value) {
			out[i].Adjacent = true
			out[i].Disabled = true
		}
	}
	return out
}

// FullyBooked is FullyBookedDates with the engine policy and location.
func (e *Engine) FullyBooked(bookings []Booking, year int, month time.Month) []int {
	return FullyBookedDates(bookings, year, month, e.policy, e.loc)
}

// IsFullyBooked reports whether date's calendar day is fully booked.
func (e *Engine) IsFullyBooked(bookings []Booking, date time.Time) bool {
	return e.policy.Len() > 0 && e.BookedTimes(bookings, date).Len() >= e.policy.Len()
}

// IsPastDay reports whether date's calendar day ended before now's day began,
// both seen in the engine location.
func (e *Engine) IsPastDay(date, now time.Time) bool {
	day := CalendarDay(date, e.loc)
	y, m, d := now.In(e.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, e.loc)
	return day.Before(today)
}
