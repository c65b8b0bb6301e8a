package leadlist

import (
	"time"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

// Block is a dashboard tile.
type Block string

const (
	BlockNewLeadsToday Block = "New Leads Today"
	BlockCalls         Block = "Calls to Attend"
	BlockMeeting1      Block = "Meeting 1 to Attend"
	BlockMeeting2      Block = "Meeting 2 to Attend"
	BlockMeeting3      Block = "Meeting 3 to Attend"
	BlockConverted     Block = "Converted"
	BlockLost          Block = "Lost"
)

// Blocks lists the tiles in display order.
var Blocks = []Block{
	BlockNewLeadsToday,
	BlockCalls,
	BlockMeeting1,
	BlockMeeting2,
	BlockMeeting3,
	BlockConverted,
	BlockLost,
}

// Counts are the dashboard tile values.
type Counts struct {
	NewLeadsToday int `json:"newLeadsToday"`
	NeedToCall    int `json:"needToCall"`
	Meeting1      int `json:"meeting1"`
	Meeting2      int `json:"meeting2"`
	Meeting3      int `json:"meeting3"`
	Converted     int `json:"converted"`
	Lost          int `json:"lost"`
}

// For returns the count shown on a block.
func (c Counts) For(b Block) int {
	switch b {
	case BlockNewLeadsToday:
		return c.NewLeadsToday
	case BlockCalls:
		return c.NeedToCall
	case BlockMeeting1:
		return c.Meeting1
	case BlockMeeting2:
		return c.Meeting2
	case BlockMeeting3:
		return c.Meeting3
	case BlockConverted:
		return c.Converted
	case BlockLost:
		return c.Lost
	}
	return 0
}

// Dashboard counts the snapshot. Meeting 1 only counts leads that have an
// appointment time.
func Dashboard(all []leads.Lead, now time.Time) Counts {
	loc := location(now)
	today := dayStart(now, loc)
	var c Counts
	for _, l := range all {
		if submittedOn(l, today, loc) {
			c.NewLeadsToday++
		}
		switch l.Status {
		case leads.StatusNeedToCall:
			c.NeedToCall++
		case leads.StatusMeeting1:
			if l.HasAppointmentTime() {
				c.Meeting1++
			}
		case leads.StatusMeeting2:
			c.Meeting2++
		case leads.StatusMeeting3:
			c.Meeting3++
		case leads.StatusConverted:
			c.Converted++
		case leads.StatusLost:
			c.Lost++
		}
	}
	return c
}

// BlockFilter returns the status filter a dashboard block opens.
func BlockFilter(b Block) (string, bool) {
	switch b {
	case BlockNewLeadsToday:
		return FilterNewLeadsToday, true
	case BlockCalls:
		return string(leads.StatusNeedToCall), true
	case BlockMeeting1:
		return string(leads.StatusMeeting1), true
	case BlockMeeting2:
		return string(leads.StatusMeeting2), true
	case BlockMeeting3:
		return string(leads.StatusMeeting3), true
	case BlockConverted:
		return string(leads.StatusConverted), true
	case BlockLost:
		return string(leads.StatusLost), true
	}
	return "", false
}

// SeriesDays is the length of the daily chart.
const SeriesDays = 7

// DayCount is one point of the daily chart.
type DayCount struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DailySeries counts submissions per calendar day in loc for the trailing
// SeriesDays days ending today. Days without leads are present with 0.
func DailySeries(all []leads.Lead, now time.Time, loc *time.Location) []DayCount {
	if loc == nil {
		loc = time.UTC
	}
	today := dayStart(now, loc)
	series := make([]DayCount, SeriesDays)
	index := make(map[string]int, SeriesDays)
	for i := 0; i < SeriesDays; i++ {
		day := today.AddDate(0, 0, i-(SeriesDays-1))
		key := day.Format("2006-01-02")
		series[i] = DayCount{Date: key, Label: day.Format("Jan 2")}
		index[key] = i
	}
	for _, l := range all {
		if l.SubmissionDate.IsZero() {
			continue
		}
		if i, ok := index[l.SubmissionDate.In(loc).Format("2006-01-02")]; ok {
			series[i].Count++
		}
	}
	return series
}

// LatestSubmission returns the most recently submitted lead.
func LatestSubmission(all []leads.Lead) (leads.Lead, bool) {
	var latest leads.Lead
	found := false
	for _, l := range all {
		if l.SubmissionDate.IsZero() {
			continue
		}
		if !found || l.SubmissionDate.After(latest.SubmissionDate) {
			latest, found = l, true
		}
	}
	return latest, found
}

// LastLeadReceived renders the banner shown above the list.
func LastLeadReceived(all []leads.Lead, loc *time.Location) string {
	latest, ok := LatestSubmission(all)
	if !ok {
		return "No leads received yet"
	}
	if loc == nil {
		loc = time.UTC
	}
	return "Last Lead Received: " + latest.SubmissionDate.In(loc).Format(leads.TimestampLayout)
}
