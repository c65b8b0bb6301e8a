package leads

import (
	"fmt"
	"strings"
)

// Status is a stage of the sales pipeline.
type Status string

const (
	StatusMeeting1   Status = "Meeting 1"
	StatusNeedToCall Status = "Need to Call"
	StatusMeeting2   Status = "Meeting 2"
	StatusMeeting3   Status = "Meeting 3"
	StatusConverted  Status = "Converted"
	StatusLost       Status = "Lost"
)

// DefaultStatus is assigned to new leads.
const DefaultStatus = StatusMeeting1

// Statuses lists the pipeline in display order.
var Statuses = []Status{
	StatusMeeting1,
	StatusNeedToCall,
	StatusMeeting2,
	StatusMeeting3,
	StatusConverted,
	StatusLost,
}

var legacyStatuses = map[string]Status{
	"New":       StatusMeeting1,
	"Contacted": StatusNeedToCall,
	"Pitched":   StatusNeedToCall,
}

// ParseStatus maps an inbound status to the enum. Legacy values are remapped,
// empty means DefaultStatus, anything else is ErrUnknownStatus.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultStatus, nil
	}
	if s, ok := legacyStatuses[raw]; ok {
		return s, nil
	}
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the appointment slot is hidden for this status.
// Terminal leads can still transition to any other status.
func (s Status) IsTerminal() bool {
	return s == StatusConverted || s == StatusLost
}

func (s Status) String() string { return string(s) }
