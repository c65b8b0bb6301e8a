package leads

import (
	"fmt"
	"strings"
	"time"
)

var submissionLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Ingest validates a persisted record and normalizes it into a Lead. It is
// the only place where defaults are filled and legacy statuses remapped.
func Ingest(raw RawAppointment) (Lead, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return Lead{}, ErrMissingID
	}
	status, err := ParseStatus(raw.Status)
	if err != nil {
		return Lead{}, fmt.Errorf("ingest %s: %w", id, err)
	}

	lead := Lead{
		ID:                 id,
		FullName:           orDefault(raw.FullName, defaultName),
		PhoneNumber:        orDefault(raw.PhoneNumber, defaultPhone),
		Email:              raw.Email,
		WebsiteLink:        raw.WebsiteLink,
		AvgMonthlySales:    raw.AvgMonthlySales,
		SubmissionDate:     parseSubmission(raw.SubmissionDate),
		RawAppointmentDate: raw.Date,
		AppointmentTime:    raw.Time,
		Status:             status,
		Activity:           append([]Activity{}, raw.Activity...),
		LatestNote:         raw.LatestNote,
	}
	lead.Service, lead.Message = deriveService(lead.Activity)
	return lead, nil
}

// IngestAll normalizes a listing. Records that fail validation are returned
// separately so the caller can log them; they are not displayable.
func IngestAll(raws []RawAppointment) ([]Lead, []error) {
	out := make([]Lead, 0, len(raws))
	var rejected []error
	for _, raw := range raws {
		lead, err := Ingest(raw)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		out = append(out, lead)
	}
	return out, rejected
}

// ToRaw projects a Lead back to the wire shape.
func ToRaw(l Lead) RawAppointment {
	raw := RawAppointment{
		ID:              l.ID,
		Date:            l.RawAppointmentDate,
		Time:            l.AppointmentTime,
		FullName:        l.FullName,
		PhoneNumber:     l.PhoneNumber,
		Email:           l.Email,
		WebsiteLink:     l.WebsiteLink,
		AvgMonthlySales: l.AvgMonthlySales,
		Status:          string(l.Status),
		Activity:        append([]Activity{}, l.Activity...),
		LatestNote:      l.LatestNote,
	}
	if !l.SubmissionDate.IsZero() {
		raw.SubmissionDate = FormatISO(l.SubmissionDate)
	}
	return raw
}

func parseSubmission(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range submissionLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
