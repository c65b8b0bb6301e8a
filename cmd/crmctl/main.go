// Command crmctl is the operator console: lead list, dashboard, lead
// actions, the public booking flow and the realtime lead feed.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
	"github.com/wolfman30/muvance-crm/internal/availability"
	appconfig "github.com/wolfman30/muvance-crm/internal/config"
	"github.com/wolfman30/muvance-crm/internal/session"
	"github.com/wolfman30/muvance-crm/internal/slots"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: "text", Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.sess.Close()
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

type command struct {
	usage string
	auth  bool
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":      {usage: "login -u <username|email> -p <password>", run: cmdLogin},
	"logout":     {usage: "logout", run: cmdLogout},
	"leads":      {usage: "leads [-search text] [-status s] [-sort Latest|'Top Priority'] [-page n]", auth: true, run: cmdLeads},
	"show":       {usage: "show <lead-id>", auth: true, run: cmdShow},
	"dashboard":  {usage: "dashboard", auth: true, run: cmdDashboard},
	"suggest":    {usage: "suggest <text>", auth: true, run: cmdSuggest},
	"status":     {usage: "status <lead-id> <status>", auth: true, run: cmdStatus},
	"note":       {usage: "note <lead-id> <text>", auth: true, run: cmdNote},
	"slots":      {usage: "slots <YYYY-MM-DD>", auth: true, run: cmdSlots},
	"reschedule": {usage: "reschedule <lead-id> <YYYY-MM-DD> <h:mm AM>", auth: true, run: cmdReschedule},
	"delete":     {usage: "delete <lead-id>", auth: true, run: cmdDelete},
	"add-lead":   {usage: "add-lead -name n -phone p -date YYYY-MM-DD -time 'h:mm AM' [-email e] [-website w] [-sales s]", auth: true, run: cmdAddLead},
	"add-user":   {usage: "add-user -username u -email e -password p", auth: true, run: cmdAddUser},
	"watch":      {usage: "watch", auth: true, run: cmdWatch},
	"book":       {usage: "book", run: cmdBook},
}

type app struct {
	cfg      *appconfig.Config
	logger   *logging.Logger
	client   *apiclient.Client
	sess     *session.Session
	tokens   tokenStore
	in       *bufio.Reader
	out      io.Writer
	now      func() time.Time
	calendar *time.Location
	reports  *time.Location
}

func newApp(cfg *appconfig.Config, logger *logging.Logger, in io.Reader, out io.Writer) (*app, error) {
	calendar, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		return nil, fmt.Errorf("calendar timezone: %w", err)
	}
	reports, err := time.LoadLocation(cfg.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("reporting timezone: %w", err)
	}
	adminSlots, err := slots.PolicyByName(cfg.AdminSlotPolicy)
	if err != nil {
		return nil, err
	}
	tokens, err := defaultTokenStore()
	if err != nil {
		return nil, err
	}

	client := apiclient.New(cfg.APIBaseURL, logger.Component("apiclient"))
	sess := session.New(client, session.Options{
		Retries:    cfg.FetchRetries,
		RetryDelay: cfg.FetchRetryDelay,
		Engine:     availability.NewEngine(adminSlots, availability.WithLocation(calendar)),
		Logger:     logger.Component("session"),
	})
	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		sess:     sess,
		tokens:   tokens,
		in:       bufio.NewReader(in),
		out:      out,
		now:      time.Now,
		calendar: calendar,
		reports:  reports,
	}, nil
}

func (a *app) usage() error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(a.out, titleStyle.Render("crmctl commands"))
	for _, name := range names {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
	return nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		return a.usage()
	}
	cmd, ok := commands[args[0]]
	if !ok {
		_ = a.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	if cmd.auth {
		if err := a.resume(); err != nil {
			return err
		}
	}
	err := cmd.run(ctx, a, args[1:])
	if errors.Is(err, session.ErrLoggedOut) {
		_ = a.tokens.Clear()
		return errors.New(apiclient.MsgSessionExpired)
	}
	return err
}

// resume restores the stored credential into the session.
func (a *app) resume() error {
	cred, err := a.tokens.Load()
	if err != nil {
		return err
	}
	if err := a.sess.Resume(cred); err != nil {
		return errors.New("not logged in: run crmctl login first")
	}
	return nil
}

// refresh loads the snapshot and surfaces the fetch slot on failure.
func (a *app) refresh(ctx context.Context) error {
	if err := a.sess.Refresh(ctx); err != nil {
		if errors.Is(err, session.ErrLoggedOut) {
			return err
		}
		if msg := a.sess.FetchError(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	return nil
}

// actionErr prefers the session's user-facing message over the raw error.
func (a *app) actionErr(err error) error {
	if errors.Is(err, session.ErrLoggedOut) {
		return err
	}
	if msg := a.sess.ActionError(); msg != "" {
		a.sess.ClearActionError()
		return errors.New(msg)
	}
	return err
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// needArgs must not read the commands table: its entries call it.
func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: crmctl %s", usage)
	}
	return nil
}
