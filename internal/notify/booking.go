package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// BookingNotifier emails operators when a new appointment is stored.
type BookingNotifier struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewBookingNotifier splits recipients on commas. With no recipients the
// notifier does nothing.
func NewBookingNotifier(email EmailSender, recipients string, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	n := &BookingNotifier{email: email, logger: logger}
	for _, r := range strings.Split(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			n.recipients = append(n.recipients, r)
		}
	}
	return n
}

// NotifyNewAppointment sends one email per recipient and joins failures.
func (n *BookingNotifier) NotifyNewAppointment(ctx context.Context, raw leads.RawAppointment) error {
	if n.email == nil || len(n.recipients) == 0 {
		return nil
	}
	msg := bookingEmail(raw)
	var errs []error
	for _, to := range n.recipients {
		msg.To = to
		if err := n.email.Send(ctx, msg); err != nil {
			n.logger.Error("booking email failed", "to", to, "lead_id", raw.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func bookingEmail(raw leads.RawAppointment) EmailMessage {
	name := strings.TrimSpace(raw.FullName)
	if name == "" {
		name = "A new lead"
	}
	rows := [][2]string{
		{"Name", name},
		{"Phone", raw.PhoneNumber},
		{"Email", raw.Email},
		{"Website", raw.WebsiteLink},
		{"Monthly sales", raw.AvgMonthlySales},
		{"Date", raw.Date},
		{"Time", raw.Time},
	}

	var text, table strings.Builder
	fmt.Fprintf(&text, "%s booked an appointment.\n\n", name)
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
		fmt.Fprintf(&table, `<tr><td style="padding:6px"><strong>%s</strong></td><td style="padding:6px">%s</td></tr>`,
			row[0], html.EscapeString(row[1]))
	}

	return EmailMessage{
		Subject: fmt.Sprintf("New appointment: %s on %s at %s", name, raw.Date, raw.Time),
		Body:    text.String(),
		HTML: fmt.Sprintf(`<div style="font-family:sans-serif"><h2>New appointment</h2><table>%s</table></div>`,
			table.String()),
	}
}
