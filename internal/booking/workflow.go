// Package booking implements the public booking widget flow:
// date, then time, then contact details, then confirmation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

// Step is a workflow state.
type Step string

const (
	StepDate      Step = "date"
	StepTime      Step = "time"
	StepDetails   Step = "details"
	StepConfirmed Step = "confirmed"
)

// AvailabilitySource lists existing bookings in [from, to).
type AvailabilitySource interface {
	ListBookings(ctx context.Context, from, to time.Time) ([]availability.Booking, error)
}

// Submitter persists a new appointment.
type Submitter interface {
	CreateAppointment(ctx context.Context, raw leads.RawAppointment) (leads.RawAppointment, error)
}

// Workflow is one booking attempt. A confirmed workflow is not reused.
type Workflow struct {
	engine *availability.Engine
	policy Policy
	source AvailabilitySource
	submit Submitter

	step        Step
	month       time.Time
	fullyBooked map[int]bool
	date        time.Time
	slots       []slots.Slot
	selected    string
	details     leads.Contact
	fieldErrs   FieldErrors
	message     string
	confirmed   leads.RawAppointment
}

// New starts a workflow on the date step.
func New(engine *availability.Engine, policy Policy, source AvailabilitySource, submit Submitter) *Workflow {
	if engine == nil {
		engine = availability.NewEngine(slots.WidgetSlots(), availability.WithThirtyMinuteRule(true))
	}
	return &Workflow{
		engine:      engine,
		policy:      policy,
		source:      source,
		submit:      submit,
		step:        StepDate,
		fullyBooked: make(map[int]bool),
	}
}

func (w *Workflow) Step() Step { return w.step }
func (w *Workflow) Date() time.Time { return w.date }
func (w *Workflow) SelectedTime() string { return w.selected }
func (w *Workflow) Details() leads.Contact { return w.details }
func (w *Workflow) FieldErrors() FieldErrors { return w.fieldErrs }
func (w *Workflow) Message() string { return w.message }
func (w *Workflow) Confirmed() leads.RawAppointment { return w.confirmed }
func (w *Workflow) Month() time.Time { return w.month }

// Slots returns the classified slots of the selected date.
func (w *Workflow) Slots() []slots.Slot {
	return append([]slots.Slot(nil), w.slots...)
}

// DisplaySlots returns the slots rotated so the selected one is centered.
func (w *Workflow) DisplaySlots() []slots.Slot {
	return slots.Reorder(w.slots, w.selected)
}

// FullyBookedDays returns the fully booked days of the viewed month.
func (w *Workflow) FullyBookedDays() []int {
	var out []int
	for d := 1; d <= 31; d++ {
		if w.fullyBooked[d] {
			out = append(out, d)
		}
	}
	return out
}

func (w *Workflow) guard(allowed ...Step) error {
	if w.step == StepConfirmed {
		return ErrWorkflowComplete
	}
	for _, s := range allowed {
		if w.step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
}

// ViewMonth loads the month's bookings and marks fully booked days. A month
// that ended before now's day cannot be viewed.
func (w *Workflow) ViewMonth(ctx context.Context, year int, month time.Month, now time.Time) error {
	if w.step == StepConfirmed {
		return ErrWorkflowComplete
	}
	loc := w.engine.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	if w.engine.IsPastDay(last, now) {
		return ErrMonthInPast
	}

	bookings, err := w.source.ListBookings(ctx, first, first.AddDate(0, 1, 0))
	if err != nil {
		w.message = "Unable to load availability. Please try again."
		return fmt.Errorf("%w: %v", ErrAvailability, err)
	}
	w.month = first
	w.fullyBooked = make(map[int]bool)
	for _, d := range w.engine.FullyBooked(bookings, year, month) {
		w.fullyBooked[d] = true
	}
	w.message = ""
	return nil
}

// NextMonth views the month after the current one.
func (w *Workflow) NextMonth(ctx context.Context, now time.Time) error {
	next := w.viewed(now).AddDate(0, 1, 0)
	return w.ViewMonth(ctx, next.Year(), next.Month(), now)
}

// PrevMonth views the month before the current one.
func (w *Workflow) PrevMonth(ctx context.Context, now time.Time) error {
	prev := w.viewed(now).AddDate(0, -1, 0)
	return w.ViewMonth(ctx, prev.Year(), prev.Month(), now)
}

func (w *Workflow) viewed(now time.Time) time.Time {
	if !w.month.IsZero() {
		return w.month
	}
	n := now.In(w.engine.Location())
	return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, w.engine.Location())
}

// SelectDate picks a calendar day. Past and fully booked days are refused.
// The previous time choice is cleared and the day's bookings are fetched.
func (w *Workflow) SelectDate(ctx context.Context, date, now time.Time) error {
	if err := w.guard(StepDate, StepTime, StepDetails); err != nil {
		return err
	}
	day := availability.CalendarDay(date, w.engine.Location())
	if w.engine.IsPastDay(day, now) {
		return ErrDateInPast
	}
	if w.sameMonth(day) && w.fullyBooked[day.Day()] {
		return ErrDateFullyBooked
	}

	bookings, err := w.source.ListBookings(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		w.message = "Unable to load availability. Please try again."
		return fmt.Errorf("%w: %v", ErrAvailability, err)
	}
	if w.engine.IsFullyBooked(bookings, day) {
		if w.sameMonth(day) {
			w.fullyBooked[day.Day()] = true
		}
		return ErrDateFullyBooked
	}

	w.date = day
	w.selected = ""
	w.slots = w.engine.Slots(bookings, day, now)
	w.message = ""
	w.step = StepTime
	return nil
}

func (w *Workflow) sameMonth(day time.Time) bool {
	return !w.month.IsZero() && day.Year() == w.month.Year() && day.Month() == w.month.Month()
}

// SelectTime picks one of the enabled slots of the selected date.
func (w *Workflow) SelectTime(value string) error {
	if err := w.guard(StepTime, StepDetails); err != nil {
		return err
	}
	s, ok := slots.Find(w.slots, value)
	if !ok || s.Disabled {
		return fmt.Errorf("%w: %s", ErrSlotUnavailable, value)
	}
	w.selected = value
	w.step = StepDetails
	return nil
}

// Back returns to the previous step. Entered details are kept.
func (w *Workflow) Back() error {
	switch w.step {
	case StepConfirmed:
		return ErrWorkflowComplete
	case StepDetails:
		w.step = StepTime
	case StepTime:
		w.step = StepDate
	}
	return nil
}

// UpdateDetails stores form input without validating it.
func (w *Workflow) UpdateDetails(c leads.Contact) error {
	if err := w.guard(StepDetails); err != nil {
		return err
	}
	w.details = c
	return nil
}

// Confirm validates the details and submits the booking. On validation or
// persistence failure the workflow stays on the details step with the data
// intact.
func (w *Workflow) Confirm(ctx context.Context, c leads.Contact) (leads.RawAppointment, error) {
	if err := w.guard(StepDetails); err != nil {
		return leads.RawAppointment{}, err
	}
	w.details = c
	w.fieldErrs = nil
	w.message = ""

	if err := w.policy.Validate(c); err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			w.fieldErrs = fe
		}
		return leads.RawAppointment{}, err
	}

	raw := leads.NewWidgetBooking(c, w.date, w.selected)
	created, err := w.submit.CreateAppointment(ctx, raw)
	if err != nil {
		w.message = SubmitFailedMessage
		return leads.RawAppointment{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	w.confirmed = created
	w.step = StepConfirmed
	return created, nil
}
