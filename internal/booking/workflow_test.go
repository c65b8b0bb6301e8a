package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

type fakeSource struct {
	bookings []availability.Booking
	err      error
	calls    int
}

func (f *fakeSource) ListBookings(_ context.Context, from, to time.Time) ([]availability.Booking, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []availability.Booking
	for _, b := range f.bookings {
		t, err := availability.ParseDate(b.Date, time.UTC)
		if err == nil && !t.Before(from) && t.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeSubmitter struct {
	err  error
	got  []leads.RawAppointment
	next string
}

func (f *fakeSubmitter) CreateAppointment(_ context.Context, raw leads.RawAppointment) (leads.RawAppointment, error) {
	f.got = append(f.got, raw)
	if f.err != nil {
		return leads.RawAppointment{}, f.err
	}
	raw.ID = f.next
	return raw, nil
}

var (
	ctx = context.Background()
	now = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
)

func validContact() leads.Contact {
	return leads.Contact{FullName: "Nadia Islam", PhoneNumber: "01712340001", Email: "nadia@example.com"}
}

func newWorkflow(src *fakeSource, sub *fakeSubmitter) *Workflow {
	engine := availability.NewEngine(slots.WidgetSlots(), availability.WithThirtyMinuteRule(true))
	return New(engine, DefaultPolicy(), src, sub)
}

func TestHappyPath(t *testing.T) {
	src := &fakeSource{bookings: []availability.Booking{{Date: "2025-06-03", Time: "4:00 PM"}}}
	sub := &fakeSubmitter{next: "abc"}
	w := newWorkflow(src, sub)

	require.NoError(t, w.ViewMonth(ctx, 2025, time.June, now))
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, StepTime, w.Step())
	assert.Equal(t, []string{"11:00 AM", "1:00 PM", "7:00 PM", "9:00 PM"}, slots.Available(w.Slots()))

	require.NoError(t, w.SelectTime("1:00 PM"))
	assert.Equal(t, StepDetails, w.Step())
	assert.Equal(t, "1:00 PM", w.DisplaySlots()[2].Value)

	created, err := w.Confirm(ctx, validContact())
	require.NoError(t, err)
	assert.Equal(t, "abc", created.ID)
	assert.Equal(t, StepConfirmed, w.Step())
	require.Len(t, sub.got, 1)
	assert.Equal(t, "2025-06-03T00:00:00.000Z", sub.got[0].Date)
	assert.Equal(t, "1:00 PM", sub.got[0].Time)
}

func TestSelectDateRefusesPastAndFullyBooked(t *testing.T) {
	var full []availability.Booking
	for _, c := range slots.WidgetSlots().Times() {
		full = append(full, availability.Booking{Date: "2025-06-05", Time: c.String()})
	}
	src := &fakeSource{bookings: full}
	w := newWorkflow(src, &fakeSubmitter{})

	err := w.SelectDate(ctx, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), now)
	assert.ErrorIs(t, err, ErrDateInPast)

	require.NoError(t, w.ViewMonth(ctx, 2025, time.June, now))
	assert.Equal(t, []int{5}, w.FullyBookedDays())
	calls := src.calls
	err = w.SelectDate(ctx, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), now)
	assert.ErrorIs(t, err, ErrDateFullyBooked)
	assert.Equal(t, calls, src.calls, "known fully booked day must not fetch")
	assert.Equal(t, StepDate, w.Step())

	fresh := newWorkflow(src, &fakeSubmitter{})
	err = fresh.SelectDate(ctx, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), now)
	assert.ErrorIs(t, err, ErrDateFullyBooked)
}

func TestTodayAllowedButPastSlotsDisabled(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{})
	require.NoError(t, w.SelectDate(ctx, now, now))
	assert.Equal(t, []string{"1:00 PM", "4:00 PM", "7:00 PM", "9:00 PM"}, slots.Available(w.Slots()))
	assert.ErrorIs(t, w.SelectTime("11:00 AM"), ErrSlotUnavailable)
	assert.ErrorIs(t, w.SelectTime("5:00 PM"), ErrSlotUnavailable)
}

func TestThirtyMinuteRuleBlocksEarlierSlot(t *testing.T) {
	engine := availability.NewEngine(
		slots.NewPolicy("half", slots.MustParseClock("1:00 PM"), slots.MustParseClock("1:30 PM")),
		availability.WithThirtyMinuteRule(true),
	)
	src := &fakeSource{bookings: []availability.Booking{{Date: "2025-06-04", Time: "1:30 PM"}}}
	w := New(engine, DefaultPolicy(), src, &fakeSubmitter{})
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), now))
	assert.ErrorIs(t, w.SelectTime("1:00 PM"), ErrSlotUnavailable)
}

func TestSelectDateResetsTime(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{})
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now))
	require.NoError(t, w.SelectTime("7:00 PM"))
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "", w.SelectedTime())
	assert.Equal(t, StepTime, w.Step())
}

func TestAvailabilityFetchFailureStaysOnDate(t *testing.T) {
	w := newWorkflow(&fakeSource{err: errors.New("connection refused")}, &fakeSubmitter{})
	err := w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now)
	assert.ErrorIs(t, err, ErrAvailability)
	assert.Equal(t, StepDate, w.Step())
	assert.NotEmpty(t, w.Message())
}

func TestValidationKeepsDetails(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{})
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now))
	require.NoError(t, w.SelectTime("7:00 PM"))

	bad := leads.Contact{FullName: "", PhoneNumber: "123", Email: "x"}
	_, err := w.Confirm(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidDetails)
	assert.Equal(t, StepDetails, w.Step())
	assert.Len(t, w.FieldErrors(), 3)
	assert.Equal(t, bad, w.Details())
}

func TestSubmitFailureIsRetryable(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("500")}
	w := newWorkflow(&fakeSource{}, sub)
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now))
	require.NoError(t, w.SelectTime("7:00 PM"))

	_, err := w.Confirm(ctx, validContact())
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, StepDetails, w.Step())
	assert.Equal(t, SubmitFailedMessage, w.Message())
	assert.Equal(t, validContact(), w.Details())

	sub.err = nil
	sub.next = "ok"
	created, err := w.Confirm(ctx, w.Details())
	require.NoError(t, err)
	assert.Equal(t, "ok", created.ID)
	assert.Empty(t, w.Message())
}

func TestBackKeepsFormData(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{})
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now))
	require.NoError(t, w.SelectTime("7:00 PM"))
	require.NoError(t, w.UpdateDetails(validContact()))
	require.NoError(t, w.Back())
	assert.Equal(t, StepTime, w.Step())
	assert.Equal(t, validContact(), w.Details())
	require.NoError(t, w.SelectTime("9:00 PM"))
	assert.Equal(t, validContact(), w.Details())
}

func TestConfirmedIsTerminal(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{next: "1"})
	require.NoError(t, w.SelectDate(ctx, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), now))
	require.NoError(t, w.SelectTime("7:00 PM"))
	_, err := w.Confirm(ctx, validContact())
	require.NoError(t, err)

	assert.ErrorIs(t, w.Back(), ErrWorkflowComplete)
	assert.ErrorIs(t, w.SelectTime("9:00 PM"), ErrWorkflowComplete)
	assert.ErrorIs(t, w.SelectDate(ctx, now, now), ErrWorkflowComplete)
	_, err = w.Confirm(ctx, validContact())
	assert.ErrorIs(t, err, ErrWorkflowComplete)
	assert.ErrorIs(t, w.ViewMonth(ctx, 2025, time.July, now), ErrWorkflowComplete)
}

func TestStepGuards(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{})
	assert.ErrorIs(t, w.SelectTime("7:00 PM"), ErrWrongStep)
	_, err := w.Confirm(ctx, validContact())
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestMonthNavigation(t *testing.T) {
	w := newWorkflow(&fakeSource{}, &fakeSubmitter{})
	assert.ErrorIs(t, w.PrevMonth(ctx, now), ErrMonthInPast)
	require.NoError(t, w.NextMonth(ctx, now))
	assert.Equal(t, time.July, w.Month().Month())
	require.NoError(t, w.PrevMonth(ctx, now))
	assert.Equal(t, time.June, w.Month().Month())
}

func TestBookingRoundTripWestOfUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	engine := availability.NewEngine(slots.WidgetSlots(),
		availability.WithThirtyMinuteRule(true),
		availability.WithLocation(ny))
	before := time.Date(2025, 5, 30, 9, 0, 0, 0, ny)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, ny)

	src := &fakeSource{}
	sub := &fakeSubmitter{next: "ny-1"}
	first := New(engine, DefaultPolicy(), src, sub)
	require.NoError(t, first.SelectDate(ctx, day, before))
	require.NoError(t, first.SelectTime("11:00 AM"))
	created, err := first.Confirm(ctx, validContact())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T04:00:00.000Z", created.Date)

	src.bookings = append(src.bookings, availability.Booking{Date: created.Date, Time: created.Time})
	assert.True(t, availability.BookedTimesForDate(src.bookings, day, ny).Has("11:00 AM"))
	assert.False(t, availability.BookedTimesForDate(src.bookings, day.AddDate(0, 0, -1), ny).Has("11:00 AM"))

	second := New(engine, DefaultPolicy(), src, &fakeSubmitter{})
	require.NoError(t, second.SelectDate(ctx, day, before))
	s, ok := slots.Find(second.Slots(), "11:00 AM")
	require.True(t, ok)
	assert.True(t, s.Booked)
	assert.True(t, s.Disabled)
	assert.ErrorIs(t, second.SelectTime("11:00 AM"), ErrSlotUnavailable)
}
