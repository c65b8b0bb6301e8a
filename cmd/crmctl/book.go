package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/booking"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

var errCancelled = errors.New("booking cancelled")

// prompt reads one trimmed line. End of input cancels the flow.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errCancelled
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "q" {
		return "", errCancelled
	}
	return line, nil
}

func (a *app) newWorkflow() (*booking.Workflow, error) {
	phone, err := booking.ParsePhonePolicy(a.cfg.PhonePolicy)
	if err != nil {
		return nil, err
	}
	widgetSlots, err := slots.PolicyByName(a.cfg.WidgetSlotPolicy)
	if err != nil {
		return nil, err
	}
	engine := availability.NewEngine(widgetSlots,
		availability.WithThirtyMinuteRule(a.cfg.ThirtyMinuteRule),
		availability.WithLocation(a.calendar))
	widget := a.client.Widget()
	policy := booking.Policy{Phone: phone, RequireWebsite: a.cfg.RequireWebsite}
	return booking.New(engine, policy, widget, widget), nil
}

// cmdBook walks the public booking flow without a login.
func cmdBook(ctx context.Context, a *app, args []string) error {
	w, err := a.newWorkflow()
	if err != nil {
		return err
	}
	now := a.now()
	today := availability.CalendarDay(now, a.calendar)
	if err := w.ViewMonth(ctx, today.Year(), today.Month(), now); err != nil {
		return bookingErr(w, err)
	}

	for w.Step() != booking.StepConfirmed {
		switch w.Step() {
		case booking.StepDate:
			err = a.pickDate(ctx, w, today)
		case booking.StepTime:
			err = a.pickTime(w)
		case booking.StepDetails:
			err = a.enterDetails(ctx, w)
		}
		if errors.Is(err, errCancelled) {
			fmt.Fprintln(a.out, mutedStyle.Render("Booking cancelled"))
			return nil
		}
		if err != nil {
			return err
		}
	}

	c := w.Confirmed()
	fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("Booked %s on %s at %s", c.FullName, w.Date().Format("Monday, January 2, 2006"), c.Time)))
	return nil
}

func (a *app) pickDate(ctx context.Context, w *booking.Workflow, today time.Time) error {
	renderMonth(a.out, w.Month(), today, w.FullyBookedDays())
	in, err := a.prompt("Date (YYYY-MM-DD, n next month, p previous month, q quit): ")
	if err != nil {
		return err
	}
	now := a.now()
	switch in {
	case "n":
		err = w.NextMonth(ctx, now)
	case "p":
		err = w.PrevMonth(ctx, now)
	default:
		var day time.Time
		day, err = a.parseDay(in)
		if err == nil {
			err = w.SelectDate(ctx, day, now)
		}
	}
	a.softErr(w, err)
	return nil
}

func (a *app) pickTime(w *booking.Workflow) error {
	fmt.Fprintln(a.out, titleStyle.Render(w.Date().Format("Monday, January 2")))
	renderSlots(a.out, w.DisplaySlots())
	in, err := a.prompt("Time (as listed, b back, q quit): ")
	if err != nil {
		return err
	}
	if in == "b" {
		return w.Back()
	}
	for _, s := range w.DisplaySlots() {
		if strings.EqualFold(s.Label, in) {
			in = s.Value
			break
		}
	}
	a.softErr(w, w.SelectTime(in))
	return nil
}

func (a *app) enterDetails(ctx context.Context, w *booking.Workflow) error {
	prev := w.Details()
	fields := []struct {
		label string
		dst   *string
	}{
		{"Full name", &prev.FullName},
		{"Phone number", &prev.PhoneNumber},
		{"Email", &prev.Email},
		{"Website", &prev.WebsiteLink},
		{"Average monthly sales", &prev.AvgMonthlySales},
	}
	for _, f := range fields {
		label := f.label
		if *f.dst != "" {
			label += " [" + *f.dst + "]"
		}
		in, err := a.prompt(label + ": ")
		if err != nil {
			return err
		}
		if in == "b" {
			return w.Back()
		}
		if in != "" {
			*f.dst = in
		}
	}
	_, err := w.Confirm(ctx, prev)
	a.softErr(w, err)
	return nil
}

// softErr reports a recoverable step failure and keeps the flow running.
func (a *app) softErr(w *booking.Workflow, err error) {
	if err == nil {
		return
	}
	var fe booking.FieldErrors
	if errors.As(err, &fe) {
		for _, f := range fe {
			fmt.Fprintln(a.out, errorStyle.Render(f.Message))
		}
		return
	}
	fmt.Fprintln(a.out, errorStyle.Render(bookingErr(w, err).Error()))
}

func bookingErr(w *booking.Workflow, err error) error {
	if msg := w.Message(); msg != "" {
		return errors.New(msg)
	}
	switch {
	case errors.Is(err, booking.ErrDateInPast):
		return errors.New("That date has already passed.")
	case errors.Is(err, booking.ErrMonthInPast):
		return errors.New("That month has already passed.")
	case errors.Is(err, booking.ErrDateFullyBooked):
		return errors.New("That date is fully booked.")
	case errors.Is(err, booking.ErrSlotUnavailable):
		return errors.New("That time is not available.")
	}
	return err
}
