package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leadlist"
	"github.com/wolfman30/muvance-crm/internal/leads"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	user := fs.String("u", "", "username or email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *pass == "" {
		return errors.New("usage: crmctl login -u <username|email> -p <password>")
	}
	if err := a.sess.Login(ctx, *user, *pass); err != nil {
		return a.actionErr(err)
	}
	if err := a.tokens.Save(a.sess.Credential()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, okStyle.Render("Logged in as "+*user))
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	a.sess.Logout()
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdLeads(ctx context.Context, a *app, args []string) error {
	fs := newFlags("leads")
	search := fs.String("search", "", "text filter over name, phone and website")
	status := fs.String("status", "", "status filter, or 'New Leads Today'")
	order := fs.String("sort", "", "Latest or 'Top Priority' when no status filter is set")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	q := leadlist.Query{
		Search:       *search,
		StatusFilter: *status,
		Option:       leadlist.Option(*order),
		Now:          a.now().In(a.calendar),
	}
	fmt.Fprintln(a.out, mutedStyle.Render(leadlist.LastLeadReceived(a.sess.Leads(), a.reports)))
	renderLeadTable(a.out, a.sess.View(q, *page))
	return nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, "show <lead-id>"); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	l, ok := a.sess.Lead(args[0])
	if !ok {
		return fmt.Errorf("lead %s not found", args[0])
	}
	renderLead(a.out, l)
	return nil
}

func cmdDashboard(ctx context.Context, a *app, args []string) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	now := a.now()
	all := a.sess.Leads()
	renderDashboard(a.out,
		a.sess.Dashboard(now.In(a.calendar)),
		leadlist.DailySeries(all, now, a.reports),
		leadlist.LastLeadReceived(all, a.reports))
	return nil
}

func cmdSuggest(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, "suggest <text>"); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	for _, s := range leadlist.Suggestions(a.sess.Leads(), strings.Join(args, " ")) {
		fmt.Fprintf(a.out, "%s %s\n", mutedStyle.Render(fmt.Sprintf("%-8s", s.Kind)), s.Value)
	}
	return nil
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 2, "status <lead-id> <status>"); err != nil {
		return err
	}
	status, err := leads.ParseStatus(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	l, err := a.sess.SetStatus(ctx, args[0], status, a.now())
	if err != nil {
		return a.actionErr(err)
	}
	fmt.Fprintf(a.out, "%s is now %s\n", l.FullName, statusLabel(l.Status))
	return nil
}

func cmdNote(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 2, "note <lead-id> <text>"); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	l, err := a.sess.AddNote(ctx, args[0], strings.Join(args[1:], " "), a.now())
	if err != nil {
		return a.actionErr(err)
	}
	fmt.Fprintf(a.out, "Note added to %s\n", l.FullName)
	return nil
}

func (a *app) parseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(availability.DayLayout, value, a.calendar)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %q", value)
	}
	return day, nil
}

func cmdSlots(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, "slots <YYYY-MM-DD>"); err != nil {
		return err
	}
	day, err := a.parseDay(args[0])
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	renderSlots(a.out, a.sess.RescheduleSlots(day, a.now()))
	return nil
}

func cmdReschedule(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 3, "reschedule <lead-id> <YYYY-MM-DD> <h:mm AM>"); err != nil {
		return err
	}
	day, err := a.parseDay(args[1])
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	l, err := a.sess.Reschedule(ctx, args[0], day, strings.Join(args[2:], " "), a.now())
	if err != nil {
		return a.actionErr(err)
	}
	fmt.Fprintf(a.out, "%s moved to %s\n", l.FullName, appointmentLabel(l))
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, "delete <lead-id>"); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	if err := a.sess.Delete(ctx, args[0]); err != nil {
		return a.actionErr(err)
	}
	fmt.Fprintln(a.out, "Lead deleted")
	return nil
}

func cmdAddLead(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-lead")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "email")
	website := fs.String("website", "", "website link")
	sales := fs.String("sales", "", "average monthly sales")
	date := fs.String("date", "", "appointment date YYYY-MM-DD")
	clock := fs.String("time", "", "appointment time h:mm AM")
	if err := fs.Parse(args); err != nil {
		return err
	}
	day, err := a.parseDay(*date)
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	l, err := a.sess.AddLead(ctx, leads.ManualLeadInput{
		Contact: leads.Contact{
			FullName:        *name,
			PhoneNumber:     *phone,
			Email:           *email,
			WebsiteLink:     *website,
			AvgMonthlySales: *sales,
		},
		Date: day,
		Time: *clock,
	}, a.now())
	if err != nil {
		return a.actionErr(err)
	}
	fmt.Fprintln(a.out, okStyle.Render("Added "+l.FullName+" ("+l.ID+")"))
	return nil
}

func cmdAddUser(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-user")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	err := a.sess.AddUser(ctx, apiclient.NewUser{Username: *username, Email: *email, Password: *password})
	if err != nil {
		return a.actionErr(err)
	}
	fmt.Fprintln(a.out, okStyle.Render("User "+*username+" created"))
	return nil
}
