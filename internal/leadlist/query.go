// Package leadlist filters, sorts and pages a lead snapshot for display and
// derives the dashboard views over it.
package leadlist

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

// PageSize is the fixed number of leads per page.
const PageSize = 15

// FilterNewLeadsToday is the status filter for leads submitted today.
const FilterNewLeadsToday = "New Leads Today"

// Option is the sort mode used when no status filter is set.
type Option string

const (
	OptionNone        Option = ""
	OptionLatest      Option = "Latest"
	OptionTopPriority Option = "Top Priority"
)

// Query is the full list state. Now fixes "today" for every stage; its
// location decides calendar days.
type Query struct {
	Search       string
	StatusFilter string
	Option       Option
	Now          time.Time
}

// Apply runs text filter, status/priority filter and sort, in that order.
// The input slice is not modified.
func Apply(all []leads.Lead, q Query) []leads.Lead {
	out := FilterText(all, q.Search)
	out = FilterStatus(out, q)
	SortFor(out, q)
	return out
}

// FilterText keeps leads whose name, phone or website contains search,
// case-insensitively. Empty search keeps everything.
func FilterText(all []leads.Lead, search string) []leads.Lead {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]leads.Lead, 0, len(all))
	for _, l := range all {
		if needle == "" || matches(l, needle) {
			out = append(out, l)
		}
	}
	return out
}

func matches(l leads.Lead, needle string) bool {
	return strings.Contains(strings.ToLower(l.FullName), needle) ||
		strings.Contains(strings.ToLower(l.PhoneNumber), needle) ||
		(l.WebsiteLink != "" && strings.Contains(strings.ToLower(l.WebsiteLink), needle))
}

// FilterStatus applies the status filter, or the Top Priority option when no
// status filter is set.
func FilterStatus(in []leads.Lead, q Query) []leads.Lead {
	loc := location(q.Now)
	today := dayStart(q.Now, loc)

	var keep func(leads.Lead) bool
	switch {
	case q.StatusFilter == FilterNewLeadsToday:
		keep = func(l leads.Lead) bool { return submittedOn(l, today, loc) }
	case q.StatusFilter != "":
		keep = func(l leads.Lead) bool { return string(l.Status) == q.StatusFilter }
	case q.Option == OptionTopPriority:
		keep = func(l leads.Lead) bool {
			day, ok := appointmentDay(l, loc)
			return ok && !day.Before(today)
		}
	default:
		return in
	}

	out := make([]leads.Lead, 0, len(in))
	for _, l := range in {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// SortFor orders in place according to the query. Sorting is stable.
func SortFor(in []leads.Lead, q Query) {
	loc := location(q.Now)
	switch {
	case q.StatusFilter == FilterNewLeadsToday, q.StatusFilter == "" && q.Option == OptionLatest:
		sort.SliceStable(in, func(i, j int) bool {
			return in[i].SubmissionDate.After(in[j].SubmissionDate)
		})
	case q.StatusFilter != "", q.Option == OptionTopPriority:
		sort.SliceStable(in, func(i, j int) bool {
			ai, okI := AppointmentAt(in[i], loc)
			aj, okJ := AppointmentAt(in[j], loc)
			switch {
			case okI && okJ:
				return ai.Before(aj)
			default:
				return okI && !okJ
			}
		})
	}
}

// AppointmentAt combines the lead's appointment date and time in loc. A
// missing time counts as midnight. ok is false when the date is unparsable.
func AppointmentAt(l leads.Lead, loc *time.Location) (time.Time, bool) {
	day, ok := appointmentDay(l, loc)
	if !ok {
		return time.Time{}, false
	}
	clock := slots.Clock{}
	if l.HasAppointmentTime() {
		if c, err := slots.ParseClock(l.AppointmentTime); err == nil {
			clock = c
		}
	}
	return day.Add(time.Duration(clock.Minutes()) * time.Minute), true
}

func appointmentDay(l leads.Lead, loc *time.Location) (time.Time, bool) {
	t, err := availability.ParseDate(l.RawAppointmentDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return dayStart(t, loc), true
}

func submittedOn(l leads.Lead, day time.Time, loc *time.Location) bool {
	if l.SubmissionDate.IsZero() {
		return false
	}
	return dayStart(l.SubmissionDate, loc).Equal(day)
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func location(now time.Time) *time.Location {
	return now.Location()
}
