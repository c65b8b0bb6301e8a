package events

import (
	"time"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

// Lead event types. They double as AMQP routing keys.
const (
	TypeLeadCreated = "lead.created"
	TypeLeadUpdated = "lead.updated"
	TypeLeadDeleted = "lead.deleted"
)

// LeadEvent is published after every successful appointment write.
type LeadEvent struct {
	Type       string    `json:"type"`
	LeadID     string    `json:"leadId"`
	FullName   string    `json:"fullName,omitempty"`
	Date       string    `json:"date,omitempty"`
	Time       string    `json:"time,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewLeadEvent projects a stored appointment into an event. Contact details
// other than the name are left out.
func NewLeadEvent(eventType string, raw leads.RawAppointment, now time.Time) LeadEvent {
	return LeadEvent{
		Type:       eventType,
		LeadID:     raw.ID,
		FullName:   raw.FullName,
		Date:       raw.Date,
		Time:       raw.Time,
		Status:     raw.Status,
		OccurredAt: now.UTC(),
	}
}
