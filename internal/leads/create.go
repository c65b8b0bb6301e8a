package leads

import (
	"fmt"
	"strings"
	"time"
)

// ManualLeadInput is what an operator enters when adding a lead by hand.
type ManualLeadInput struct {
	Contact
	Date time.Time
	Time string
}

// NewManualLead builds the create payload for an operator-entered lead.
func NewManualLead(in ManualLeadInput, now time.Time) (RawAppointment, error) {
	c := in.Contact.Normalize()
	if c.FullName == "" {
		return RawAppointment{}, ErrInvalidName
	}
	if c.PhoneNumber == "" {
		return RawAppointment{}, ErrMissingPhone
	}
	if in.Date.IsZero() || strings.TrimSpace(in.Time) == "" {
		return RawAppointment{}, ErrIncompleteSchedule
	}
	ts := FormatTimestamp(now)
	return RawAppointment{
		Date:            calendarISO(in.Date),
		Time:            strings.TrimSpace(in.Time),
		FullName:        c.FullName,
		PhoneNumber:     c.PhoneNumber,
		Email:           strings.ToLower(c.Email),
		WebsiteLink:     c.WebsiteLink,
		AvgMonthlySales: c.AvgMonthlySales,
		SubmissionDate:  FormatISO(now),
		Status:          string(StatusMeeting1),
		Activity: []Activity{
			{Text: "Manually booked on " + ts, Timestamp: ts},
		},
	}, nil
}

// NewWidgetBooking builds the create payload the public widget submits.
// Submission date, status and activity are filled by persistence.
func NewWidgetBooking(c Contact, date time.Time, clock string) RawAppointment {
	c = c.Normalize()
	return RawAppointment{
		Date:            calendarISO(date),
		Time:            clock,
		FullName:        c.FullName,
		PhoneNumber:     c.PhoneNumber,
		Email:           c.Email,
		WebsiteLink:     c.WebsiteLink,
		AvgMonthlySales: c.AvgMonthlySales,
	}
}

// PrepareForCreate fills server-side defaults on a new record: submission
// date, status and the booking activity entry.
func PrepareForCreate(raw RawAppointment, now time.Time) (RawAppointment, error) {
	status, err := ParseStatus(raw.Status)
	if err != nil {
		return RawAppointment{}, err
	}
	out := raw
	out.Status = string(status)
	if strings.TrimSpace(out.SubmissionDate) == "" {
		out.SubmissionDate = FormatISO(now)
	}
	if len(out.Activity) == 0 {
		ts := FormatTimestamp(now)
		out.Activity = []Activity{{Text: fmt.Sprintf("Booked on %s", ts), Timestamp: ts}}
	} else {
		out.Activity = append([]Activity{}, raw.Activity...)
	}
	return out, nil
}

// calendarISO stores midnight of date's calendar day in date's own location,
// so readers converting back into that location land on the same day.
func calendarISO(date time.Time) string {
	return FormatISO(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()))
}
