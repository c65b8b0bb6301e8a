package leads

import (
	"strings"
	"time"
)

// ISOLayout matches JavaScript's Date.toISOString output.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// TimestampLayout renders activity timestamps, e.g. "June 1, 2025, 02:05 PM".
const TimestampLayout = "January 2, 2006, 03:04 PM"

const (
	ServiceManual      = "Manual Booking"
	ServiceAppointment = "Appointment"

	messageManual      = "Manually booked appointment."
	messageAppointment = "Booked via appointment system"

	manualMarker = "Manually booked"

	defaultName  = "Unknown Name"
	defaultPhone = "No Phone"
)

// Activity is one history entry. Notes carry Text, status changes carry
// Status. Entries are never edited once written.
type Activity struct {
	Text      string `json:"text,omitempty" bson:"text,omitempty"`
	Status    Status `json:"status,omitempty" bson:"status,omitempty"`
	Timestamp string `json:"timestamp" bson:"timestamp"`
}

// IsNote reports whether the entry is a free-text note.
func (a Activity) IsNote() bool { return a.Text != "" }

// RawAppointment is the persisted wire shape of a lead.
type RawAppointment struct {
	ID              string     `json:"_id,omitempty"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	FullName        string     `json:"fullName"`
	PhoneNumber     string     `json:"phoneNumber"`
	Email           string     `json:"email,omitempty"`
	WebsiteLink     string     `json:"websiteLink,omitempty"`
	AvgMonthlySales string     `json:"avgMonthlySales,omitempty"`
	SubmissionDate  string     `json:"submissionDate,omitempty"`
	Status          string     `json:"status,omitempty"`
	Activity        []Activity `json:"activity"`
	LatestNote      string     `json:"latestNote"`
}

// Contact is the person-level part of a booking form.
type Contact struct {
	FullName        string `json:"fullName"`
	PhoneNumber     string `json:"phoneNumber"`
	Email           string `json:"email"`
	WebsiteLink     string `json:"websiteLink"`
	AvgMonthlySales string `json:"avgMonthlySales,omitempty"`
}

// Normalize trims every field.
func (c Contact) Normalize() Contact {
	return Contact{
		FullName:        strings.TrimSpace(c.FullName),
		PhoneNumber:     strings.TrimSpace(c.PhoneNumber),
		Email:           strings.TrimSpace(c.Email),
		WebsiteLink:     strings.TrimSpace(c.WebsiteLink),
		AvgMonthlySales: strings.TrimSpace(c.AvgMonthlySales),
	}
}

// Lead is the canonical, normalized appointment record.
type Lead struct {
	ID                 string
	FullName           string
	PhoneNumber        string
	Email              string
	WebsiteLink        string
	AvgMonthlySales    string
	SubmissionDate     time.Time
	RawAppointmentDate string
	AppointmentTime    string
	Status             Status
	Service            string
	Message            string
	Activity           []Activity
	LatestNote         string
}

// ShowsAppointment reports whether the slot is displayed for the lead.
func (l Lead) ShowsAppointment() bool { return !l.Status.IsTerminal() }

// HasAppointmentTime reports whether a slot time is set.
func (l Lead) HasAppointmentTime() bool { return strings.TrimSpace(l.AppointmentTime) != "" }

// Clone returns a deep copy so callers never share the activity slice.
func (l Lead) Clone() Lead {
	cp := l
	cp.Activity = append([]Activity(nil), l.Activity...)
	return cp
}

// FormatTimestamp renders now in the activity timestamp layout, keeping now's
// location.
func FormatTimestamp(now time.Time) string {
	return now.Format(TimestampLayout)
}

// FormatISO renders t the way submission and appointment dates are stored.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

func deriveService(activity []Activity) (service, message string) {
	for _, a := range activity {
		if strings.Contains(a.Text, manualMarker) {
			return ServiceManual, messageManual
		}
	}
	return ServiceAppointment, messageAppointment
}
