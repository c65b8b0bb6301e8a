// Package session owns the admin console state: the credential, the lead
// snapshot and the fetch/action error slots.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leadlist"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = time.Second
)

// API is the backend the session drives.
type API interface {
	Login(ctx context.Context, identifier, password string) (apiclient.Credential, error)
	AddUser(ctx context.Context, cred apiclient.Credential, user apiclient.NewUser) error
	ListAppointments(ctx context.Context, cred apiclient.Credential) ([]leads.RawAppointment, error)
	CreateAppointment(ctx context.Context, cred apiclient.Credential, raw leads.RawAppointment) (leads.RawAppointment, error)
	UpdateAppointment(ctx context.Context, cred apiclient.Credential, id string, patch leads.Patch) (leads.RawAppointment, error)
	DeleteAppointment(ctx context.Context, cred apiclient.Credential, id string) error
}

// Options tunes retry behaviour and the admin calendar.
type Options struct {
	Retries    int
	RetryDelay time.Duration
	// Engine computes the admin reschedule slots. Defaults to the half-hour
	// grid in UTC.
	Engine *availability.Engine
	Logger *logging.Logger
}

// Session is safe for concurrent use.
type Session struct {
	api        API
	engine     *availability.Engine
	logger     *logging.Logger
	retries    int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.RWMutex
	cred      apiclient.Credential
	snapshot  []leads.Lead
	fetchErr  string
	actionErr string
	inflight  map[string]struct{}
	closed    bool
	index     *availability.DateIndex
}

// New builds a logged-out session.
func New(api API, opts Options) *Session {
	if api == nil {
		panic("session: api is required")
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Engine == nil {
		opts.Engine = availability.NewEngine(slots.HalfHourGrid())
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Session{
		api:        api,
		engine:     opts.Engine,
		logger:     opts.Logger,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		sleep:      sleepCtx,
		inflight:   make(map[string]struct{}),
		index:      availability.NewDateIndex(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Login exchanges credentials for a token. A failed login leaves the session
// logged out and fills the action slot.
func (s *Session) Login(ctx context.Context, identifier, password string) error {
	if s.isClosed() {
		return ErrClosed
	}
	cred, err := s.api.Login(ctx, identifier, password)
	if err != nil {
		s.setActionError(loginMessage(err))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cred = cred
	s.actionErr = ""
	return nil
}

// Resume installs a credential obtained earlier, for example one persisted
// by a command-line client between runs. An invalid credential is refused.
func (s *Session) Resume(cred apiclient.Credential) error {
	if !cred.Valid() {
		return ErrLoggedOut
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.logoutLocked()
	s.cred = cred
	return nil
}

func loginMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
		return MsgLoginFailed
	}
	return apiclient.FetchMessage(err)
}

// Logout clears the credential and every piece of derived state.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutLocked()
}

func (s *Session) logoutLocked() {
	s.cred = apiclient.Credential{}
	s.snapshot = nil
	s.fetchErr = ""
	s.actionErr = ""
	s.inflight = make(map[string]struct{})
	s.index.Reset()
}

// LoggedIn reports whether a credential is held.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Valid()
}

// Credential returns the current credential for callers that open side
// channels such as the realtime feed.
func (s *Session) Credential() apiclient.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// Close marks the session dead. Results of calls still running are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// credential returns the token to use for a call or ErrLoggedOut.
func (s *Session) credential() (apiclient.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return apiclient.Credential{}, ErrClosed
	}
	if !s.cred.Valid() {
		return apiclient.Credential{}, ErrLoggedOut
	}
	return s.cred, nil
}

// handleAuth logs out on 401/403 and reports whether it did.
func (s *Session) handleAuth(err error) bool {
	if !apiclient.IsAuth(err) {
		return false
	}
	s.logger.Warn("backend rejected credential, logging out", "error", err)
	s.Logout()
	return true
}

// Refresh reloads the full lead list, retrying transient failures. A
// successful load replaces the snapshot entirely.
func (s *Session) Refresh(ctx context.Context) error {
	cred, err := s.credential()
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		raws, err := s.api.ListAppointments(ctx, cred)
		if err == nil {
			return s.replaceSnapshot(raws)
		}
		if s.handleAuth(err) {
			return ErrLoggedOut
		}
		lastErr = err
		s.logger.Warn("list appointments failed", "attempt", attempt, "error", err)
		if attempt == s.retries {
			break
		}
		if err := s.sleep(ctx, s.retryDelay); err != nil {
			lastErr = err
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.fetchErr = apiclient.FetchMessage(lastErr)
	return lastErr
}

func (s *Session) replaceSnapshot(raws []leads.RawAppointment) error {
	all, rejected := leads.IngestAll(raws)
	for _, err := range rejected {
		s.logger.Warn("skipping invalid appointment record", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.snapshot = all
	s.fetchErr = ""
	s.index.Reset()
	return nil
}

// Leads returns a copy of the snapshot.
func (s *Session) Leads() []leads.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.Lead, len(s.snapshot))
	for i, l := range s.snapshot {
		out[i] = l.Clone()
	}
	return out
}

// Lead returns a copy of one lead.
func (s *Session) Lead(id string) (leads.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.find(id); i >= 0 {
		return s.snapshot[i].Clone(), true
	}
	return leads.Lead{}, false
}

func (s *Session) find(id string) int {
	for i := range s.snapshot {
		if s.snapshot[i].ID == id {
			return i
		}
	}
	return -1
}

// View runs the list pipeline over the snapshot.
func (s *Session) View(q leadlist.Query, page int) leadlist.View {
	return leadlist.Build(s.Leads(), q, page)
}

// Dashboard counts the snapshot per block.
func (s *Session) Dashboard(now time.Time) leadlist.Counts {
	return leadlist.Dashboard(s.Leads(), now)
}

// FetchError is the message from the last failed list load.
func (s *Session) FetchError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchErr
}

// ActionError is the message from the last failed mutation.
func (s *Session) ActionError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actionErr
}

func (s *Session) ClearFetchError() {
	s.mu.Lock()
	s.fetchErr = ""
	s.mu.Unlock()
}

func (s *Session) ClearActionError() {
	s.mu.Lock()
	s.actionErr = ""
	s.mu.Unlock()
}

func (s *Session) setActionError(msg string) {
	s.mu.Lock()
	s.actionErr = msg
	s.mu.Unlock()
}
