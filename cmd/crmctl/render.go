package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/wolfman30/muvance-crm/internal/leadlist"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	disabledCell = cellStyle.Foreground(lipgloss.Color("#999999"))
	tileStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(22)
)

var statusColors = map[leads.Status]lipgloss.Color{
	leads.StatusMeeting1:   "#5B8DEF",
	leads.StatusNeedToCall: "#F7B801",
	leads.StatusMeeting2:   "#5B8DEF",
	leads.StatusMeeting3:   "#5B8DEF",
	leads.StatusConverted:  "#4CAF50",
	leads.StatusLost:       "#FF6B6B",
}

func statusLabel(s leads.Status) string {
	return lipgloss.NewStyle().Foreground(statusColors[s]).Render(string(s))
}

// appointmentLabel hides the slot of converted and lost leads.
func appointmentLabel(l leads.Lead) string {
	if !l.ShowsAppointment() {
		return "-"
	}
	if !l.HasAppointmentTime() {
		return l.RawAppointmentDate
	}
	return l.RawAppointmentDate + " " + l.AppointmentTime
}

func renderLeadTable(w io.Writer, view leadlist.View) {
	rows := make([][]string, 0, len(view.Leads))
	for _, l := range view.Leads {
		rows = append(rows, []string{l.ID, l.FullName, l.PhoneNumber, l.Service, appointmentLabel(l), statusLabel(l.Status)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "PHONE", "SERVICE", "APPOINTMENT", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
	if view.Total == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No leads match."))
		return
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Page %d of %d (%d leads)", view.Page, view.Pages, view.Total)))
}

func renderLead(w io.Writer, l leads.Lead) {
	fmt.Fprintln(w, titleStyle.Render(l.FullName))
	pairs := [][2]string{
		{"ID", l.ID},
		{"Phone", l.PhoneNumber},
		{"Email", l.Email},
		{"Website", l.WebsiteLink},
		{"Monthly sales", l.AvgMonthlySales},
		{"Service", l.Service},
		{"Appointment", appointmentLabel(l)},
		{"Status", statusLabel(l.Status)},
		{"Latest note", l.LatestNote},
	}
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", mutedStyle.Render(fmt.Sprintf("%-14s", p[0]+":")), p[1])
	}
	if len(l.Activity) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Activity"))
	for _, a := range l.Activity {
		entry := "Status changed to " + string(a.Status)
		if a.IsNote() {
			entry = a.Text
		}
		fmt.Fprintf(w, "  %s  %s\n", mutedStyle.Render(a.Timestamp), entry)
	}
}

func renderDashboard(w io.Writer, counts leadlist.Counts, series []leadlist.DayCount, banner string) {
	tiles := make([]string, 0, len(leadlist.Blocks))
	for _, b := range leadlist.Blocks {
		tiles = append(tiles, tileStyle.Render(fmt.Sprintf("%s\n%s", mutedStyle.Render(string(b)), titleStyle.Render(fmt.Sprint(counts.For(b))))))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, tiles[:4]...))
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, tiles[4:]...))
	fmt.Fprintln(w, mutedStyle.Render(banner))

	fmt.Fprintln(w, titleStyle.Render("Leads per day"))
	maxCount := 0
	for _, d := range series {
		maxCount = max(maxCount, d.Count)
	}
	for _, d := range series {
		bar := ""
		if maxCount > 0 {
			bar = strings.Repeat("█", d.Count*30/maxCount)
		}
		fmt.Fprintf(w, "  %-7s %s %d\n", d.Label, okStyle.Render(bar), d.Count)
	}
}

func renderSlots(w io.Writer, options []slots.Slot) {
	rows := make([][]string, 0, len(options))
	for _, s := range options {
		state := "available"
		switch {
		case s.Booked:
			state = "booked"
		case s.Past:
			state = "past"
		case s.Adjacent:
			state = "too close to a booking"
		}
		rows = append(rows, []string{s.Label, state})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "STATE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(options) && options[row].Disabled:
				return disabledCell
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

// renderMonth prints a Monday-first calendar with fully booked days struck.
func renderMonth(w io.Writer, first, today time.Time, fullyBooked []int) {
	booked := make(map[int]bool, len(fullyBooked))
	for _, d := range fullyBooked {
		booked[d] = true
	}
	fmt.Fprintln(w, titleStyle.Render(first.Format("January 2006")))
	fmt.Fprintln(w, mutedStyle.Render(" Mo  Tu  We  Th  Fr  Sa  Su"))

	var b strings.Builder
	offset := (int(first.Weekday()) + 6) % 7
	b.WriteString(strings.Repeat("    ", offset))
	last := first.AddDate(0, 1, -1).Day()
	for d := 1; d <= last; d++ {
		day := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, first.Location())
		cell := fmt.Sprintf("%3d ", d)
		switch {
		case booked[d]:
			cell = errorStyle.Render(fmt.Sprintf("%3s ", "x"))
		case day.Before(today):
			cell = mutedStyle.Render(cell)
		}
		b.WriteString(cell)
		if (offset+d)%7 == 0 {
			b.WriteString("\n")
		}
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), "\n"))
}
