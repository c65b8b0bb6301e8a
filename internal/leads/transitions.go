package leads

import (
	"fmt"
	"strings"
	"time"
)

// Patch is the partial update sent to persistence for a transition. Activity
// always carries the complete, already prepended history.
type Patch struct {
	Status     *Status    `json:"status,omitempty"`
	Activity   []Activity `json:"activity,omitempty"`
	LatestNote *string    `json:"latestNote,omitempty"`
	Date       *string    `json:"date,omitempty"`
	Time       *string    `json:"time,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Activity == nil && p.LatestNote == nil && p.Date == nil && p.Time == nil
}

// Validate checks field values that persistence must never store.
func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, *p.Status)
	}
	return nil
}

// Apply merges the patch into a stored record.
func (r RawAppointment) Apply(p Patch) RawAppointment {
	out := r
	if p.Status != nil {
		out.Status = string(*p.Status)
	}
	if p.Activity != nil {
		out.Activity = append([]Activity{}, p.Activity...)
	}
	if p.LatestNote != nil {
		out.LatestNote = *p.LatestNote
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Time != nil {
		out.Time = *p.Time
	}
	return out
}

func (l Lead) prepend(entry Activity) []Activity {
	out := make([]Activity, 0, len(l.Activity)+1)
	out = append(out, entry)
	return append(out, l.Activity...)
}

// WithStatus returns a copy of l moved to status with a status-change entry.
func (l Lead) WithStatus(status Status, now time.Time) Lead {
	out := l.Clone()
	out.Status = status
	out.Activity = l.prepend(Activity{Status: status, Timestamp: FormatTimestamp(now)})
	return out
}

// WithNote returns a copy of l with text recorded as the newest note.
func (l Lead) WithNote(text string, now time.Time) Lead {
	out := l.Clone()
	out.Activity = l.prepend(Activity{Text: text, Timestamp: FormatTimestamp(now)})
	out.LatestNote = text
	out.Service, out.Message = deriveService(out.Activity)
	return out
}

// WithSchedule returns a copy of l booked for date and clock with a
// reschedule note.
func (l Lead) WithSchedule(date time.Time, clock string, now time.Time) Lead {
	out := l.Clone()
	note := fmt.Sprintf("Appointment booked for %s at %s", date.Format("January 2, 2006"), clock)
	out.Activity = l.prepend(Activity{Text: note, Timestamp: FormatTimestamp(now)})
	out.RawAppointmentDate = calendarISO(date)
	out.AppointmentTime = clock
	return out
}

// Transition moves a lead to any pipeline status. No transition matrix is
// enforced; terminal statuses can be left again.
func Transition(l Lead, status Status, now time.Time) (Lead, Patch, error) {
	if !status.Valid() {
		return l, Patch{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	next := l.WithStatus(status, now)
	return next, Patch{Status: &next.Status, Activity: next.Activity}, nil
}

// AddNote records a free-text note. Blank text is ErrEmptyNote.
func AddNote(l Lead, text string, now time.Time) (Lead, Patch, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return l, Patch{}, ErrEmptyNote
	}
	next := l.WithNote(text, now)
	return next, Patch{Activity: next.Activity, LatestNote: &next.LatestNote}, nil
}

// Reschedule books the lead for a new date and time. Both are required.
func Reschedule(l Lead, date time.Time, clock string, now time.Time) (Lead, Patch, error) {
	clock = strings.TrimSpace(clock)
	if date.IsZero() || clock == "" {
		return l, Patch{}, ErrIncompleteSchedule
	}
	next := l.WithSchedule(date, clock, now)
	return next, Patch{
		Activity: next.Activity,
		Date:     &next.RawAppointmentDate,
		Time:     &next.AppointmentTime,
	}, nil
}
