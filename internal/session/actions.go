package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

type transitionFunc func(l leads.Lead) (leads.Lead, leads.Patch, error)

// begin marks id in flight. The returned func releases it.
func (s *Session) begin(id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return nil, ErrRequestInFlight
	}
	s.inflight[id] = struct{}{}
	inflight := s.inflight
	return func() {
		s.mu.Lock()
		delete(inflight, id)
		s.mu.Unlock()
	}, nil
}

func validationMessage(err error) (string, bool) {
	var ve *leads.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}

// mutate computes a transition locally, sends its patch and, once the backend
// accepts it, swaps the new lead into the snapshot.
func (s *Session) mutate(ctx context.Context, id string, fn transitionFunc, failMsg string) (leads.Lead, error) {
	cred, err := s.credential()
	if err != nil {
		return leads.Lead{}, err
	}
	current, ok := s.Lead(id)
	if !ok {
		s.setActionError(failMsg)
		return leads.Lead{}, leads.ErrLeadNotFound
	}

	next, patch, err := fn(current)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			s.setActionError(msg)
		}
		return current, err
	}

	release, err := s.begin(id)
	if err != nil {
		return current, err
	}
	defer release()

	if _, err := s.api.UpdateAppointment(ctx, cred, id, patch); err != nil {
		if s.handleAuth(err) {
			return current, ErrLoggedOut
		}
		s.logger.Error("update appointment failed", "lead_id", id, "error", err)
		s.setActionError(failMsg)
		return current, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return current, ErrClosed
	}
	if i := s.find(id); i >= 0 {
		s.snapshot[i] = next
	}
	s.actionErr = ""
	return next.Clone(), nil
}

// SetStatus moves a lead to status.
func (s *Session) SetStatus(ctx context.Context, id string, status leads.Status, now time.Time) (leads.Lead, error) {
	return s.mutate(ctx, id, func(l leads.Lead) (leads.Lead, leads.Patch, error) {
		return leads.Transition(l, status, now)
	}, MsgStatusFailed)
}

// AddNote records a note on a lead.
func (s *Session) AddNote(ctx context.Context, id, text string, now time.Time) (leads.Lead, error) {
	return s.mutate(ctx, id, func(l leads.Lead) (leads.Lead, leads.Patch, error) {
		return leads.AddNote(l, text, now)
	}, MsgNoteFailed)
}

// Reschedule books a lead for a new slot and marks the slot booked in the
// date index.
func (s *Session) Reschedule(ctx context.Context, id string, date time.Time, clock string, now time.Time) (leads.Lead, error) {
	date = s.calendarDay(date)
	next, err := s.mutate(ctx, id, func(l leads.Lead) (leads.Lead, leads.Patch, error) {
		return leads.Reschedule(l, date, clock, now)
	}, MsgRescheduleFailed)
	if err != nil {
		return next, err
	}
	s.index.Add(date.Format(availability.DayLayout), clock)
	return next, nil
}

// calendarDay pins a picked date to midnight in the engine location so the
// stored date, the index key and the booked set all name the same day. The
// zero date is kept for validation.
func (s *Session) calendarDay(date time.Time) time.Time {
	if date.IsZero() {
		return date
	}
	return availability.CalendarDay(date, s.engine.Location())
}

// Delete removes a lead. A 404 keeps the snapshot as is until the next
// refresh.
func (s *Session) Delete(ctx context.Context, id string) error {
	cred, err := s.credential()
	if err != nil {
		return err
	}
	release, err := s.begin(id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.DeleteAppointment(ctx, cred, id); err != nil {
		if s.handleAuth(err) {
			return ErrLoggedOut
		}
		s.logger.Error("delete appointment failed", "lead_id", id, "error", err)
		s.setActionError(MsgDeleteFailed)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if i := s.find(id); i >= 0 {
		s.snapshot = append(s.snapshot[:i:i], s.snapshot[i+1:]...)
	}
	s.actionErr = ""
	return nil
}

// AddLead creates an operator-entered lead and puts it at the head of the
// snapshot.
func (s *Session) AddLead(ctx context.Context, in leads.ManualLeadInput, now time.Time) (leads.Lead, error) {
	cred, err := s.credential()
	if err != nil {
		return leads.Lead{}, err
	}
	in.Date = s.calendarDay(in.Date)
	raw, err := leads.NewManualLead(in, now)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			s.setActionError(msg)
		}
		return leads.Lead{}, err
	}

	created, err := s.api.CreateAppointment(ctx, cred, raw)
	if err != nil {
		if s.handleAuth(err) {
			return leads.Lead{}, ErrLoggedOut
		}
		s.logger.Error("create appointment failed", "error", err)
		s.setActionError(MsgAddLeadFailed)
		return leads.Lead{}, err
	}
	lead, err := leads.Ingest(created)
	if err != nil {
		s.setActionError(MsgAddLeadFailed)
		return leads.Lead{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lead, ErrClosed
	}
	s.snapshot = append([]leads.Lead{lead}, s.snapshot...)
	s.actionErr = ""
	if key, ok := availability.RawDayKey(lead.RawAppointmentDate, s.engine.Location()); ok {
		s.index.Add(key, lead.AppointmentTime)
	}
	return lead.Clone(), nil
}

// AddUser creates an operator account. Duplicate usernames surface the
// backend's message.
func (s *Session) AddUser(ctx context.Context, user apiclient.NewUser) error {
	cred, err := s.credential()
	if err != nil {
		return err
	}
	if err := s.api.AddUser(ctx, cred, user); err != nil {
		if s.handleAuth(err) {
			return ErrLoggedOut
		}
		msg := MsgAddUserFailed
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && apiErr.Message != "" {
			msg = apiErr.Message
		}
		s.setActionError(msg)
		return err
	}
	s.ClearActionError()
	return nil
}

// BookedTimes returns the booked set for date, building the index entry from
// the snapshot on first visit.
func (s *Session) BookedTimes(date time.Time) slots.TimeSet {
	day := s.calendarDay(date)
	return s.index.Visit(day.Format(availability.DayLayout), func() slots.TimeSet {
		return availability.BookedTimesForDate(s.bookings(), day, s.engine.Location())
	})
}

// RescheduleSlots lists the admin slots for date.
func (s *Session) RescheduleSlots(date, now time.Time) []slots.Slot {
	return s.engine.SlotsFor(s.BookedTimes(date), date, now)
}

func (s *Session) bookings() []availability.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]availability.Booking, 0, len(s.snapshot))
	for _, l := range s.snapshot {
		if l.RawAppointmentDate == "" || l.AppointmentTime == "" {
			continue
		}
		out = append(out, availability.Booking{Date: l.RawAppointmentDate, Time: l.AppointmentTime})
	}
	return out
}
