package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leadlist"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

type fakeAPI struct {
	mu        sync.Mutex
	listErrs  []error
	listCalls int
	records   []leads.RawAppointment
	updateErr error
	deleteErr error
	createErr error
	addErr    error
	patches   []leads.Patch
	block     chan struct{}
}

func (f *fakeAPI) Login(ctx context.Context, identifier, password string) (apiclient.Credential, error) {
	if password != "secret" {
		return apiclient.Credential{}, &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Invalid password"}
	}
	return apiclient.Credential{Token: "tok", Username: identifier, IsAdmin: true}, nil
}

func (f *fakeAPI) AddUser(ctx context.Context, cred apiclient.Credential, user apiclient.NewUser) error {
	return f.addErr
}

func (f *fakeAPI) ListAppointments(ctx context.Context, cred apiclient.Credential) ([]leads.RawAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]leads.RawAppointment(nil), f.records...), nil
}

func (f *fakeAPI) CreateAppointment(ctx context.Context, cred apiclient.Credential, raw leads.RawAppointment) (leads.RawAppointment, error) {
	if f.createErr != nil {
		return leads.RawAppointment{}, f.createErr
	}
	raw.ID = "new-1"
	return raw, nil
}

func (f *fakeAPI) UpdateAppointment(ctx context.Context, cred apiclient.Credential, id string, patch leads.Patch) (leads.RawAppointment, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return leads.RawAppointment{}, f.updateErr
	}
	return leads.RawAppointment{ID: id}, nil
}

func (f *fakeAPI) DeleteAppointment(ctx context.Context, cred apiclient.Credential, id string) error {
	return f.deleteErr
}

func seedRecords() []leads.RawAppointment {
	return []leads.RawAppointment{
		{ID: "a1", FullName: "Ada", PhoneNumber: "01700000001", Date: "2025-06-10", Time: "1:00 PM", Status: "New", SubmissionDate: "2025-06-01T10:00:00Z"},
		{ID: "a2", FullName: "Bob", PhoneNumber: "01700000002", Date: "2025-06-10", Time: "4:00 PM", Status: "Contacted", SubmissionDate: "2025-06-02T10:00:00Z"},
		{ID: "bad", FullName: "Eve", Status: "Archived"},
	}
}

func newLoggedIn(t *testing.T, api *fakeAPI) *Session {
	t.Helper()
	s := New(api, Options{})
	s.sleep = func(context.Context, time.Duration) error { return nil }
	require.NoError(t, s.Login(context.Background(), "admin", "secret"))
	return s
}

var now = time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)

func TestRefreshIngestsAndSkipsUnknownStatus(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)

	require.NoError(t, s.Refresh(context.Background()))
	all := s.Leads()
	require.Len(t, all, 2)
	assert.Equal(t, leads.StatusMeeting1, all[0].Status)
	assert.Equal(t, leads.StatusNeedToCall, all[1].Status)
	assert.Empty(t, s.FetchError())
}

func TestRefreshRetriesThenSucceeds(t *testing.T) {
	transient := &apiclient.APIError{Status: http.StatusInternalServerError}
	api := &fakeAPI{records: seedRecords(), listErrs: []error{transient, transient}}
	s := newLoggedIn(t, api)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 3, api.listCalls)
	assert.Len(t, s.Leads(), 2)
}

func TestRefreshGivesUpAfterRetries(t *testing.T) {
	transient := &apiclient.APIError{Status: http.StatusInternalServerError}
	api := &fakeAPI{listErrs: []error{transient, transient, transient}}
	s := newLoggedIn(t, api)

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, api.listCalls)
	assert.Equal(t, apiclient.MsgServerError, s.FetchError())

	s.ClearFetchError()
	assert.Empty(t, s.FetchError())
}

func TestRefreshAuthFailureLogsOut(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	api.listErrs = []error{&apiclient.APIError{Status: http.StatusForbidden}}
	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrLoggedOut)
	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.Leads())
	assert.Equal(t, 2, api.listCalls, "auth errors are not retried")

	assert.ErrorIs(t, s.Refresh(context.Background()), ErrLoggedOut)
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	api.records = api.records[:1]
	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.Leads(), 1)
}

func TestSetStatusUpdatesSnapshotAfterSuccess(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	updated, err := s.SetStatus(context.Background(), "a1", leads.StatusConverted, now)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusConverted, updated.Status)
	require.Len(t, api.patches, 1)
	assert.Equal(t, leads.StatusConverted, *api.patches[0].Status)

	stored, _ := s.Lead("a1")
	assert.Equal(t, leads.StatusConverted, stored.Status)
	assert.Equal(t, leads.StatusConverted, stored.Activity[0].Status)
}

func TestFailedUpdateKeepsSnapshotAndSetsActionError(t *testing.T) {
	api := &fakeAPI{records: seedRecords(), updateErr: errors.New("boom")}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	_, err := s.AddNote(context.Background(), "a1", "call back", now)
	require.Error(t, err)
	assert.Equal(t, MsgNoteFailed, s.ActionError())
	stored, _ := s.Lead("a1")
	assert.Empty(t, stored.LatestNote)
	assert.Empty(t, s.FetchError(), "action failures never touch the fetch slot")
}

func TestEmptyNoteNeverReachesNetwork(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	_, err := s.AddNote(context.Background(), "a1", "   ", now)
	assert.ErrorIs(t, err, leads.ErrEmptyNote)
	assert.Empty(t, api.patches)
	assert.Equal(t, "Please enter a note before adding.", s.ActionError())
}

func TestDuplicateMutationRefusedWhileInFlight(t *testing.T) {
	api := &fakeAPI{records: seedRecords(), block: make(chan struct{})}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := s.SetStatus(context.Background(), "a1", leads.StatusLost, now)
		done <- err
	}()

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, busy := s.inflight["a1"]
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := s.SetStatus(context.Background(), "a1", leads.StatusConverted, now)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	close(api.block)
	require.NoError(t, <-done)
	stored, _ := s.Lead("a1")
	assert.Equal(t, leads.StatusLost, stored.Status)
}

func TestRescheduleMarksIndex(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	booked := s.BookedTimes(day)
	assert.True(t, booked.Has("1:00 PM"))
	assert.True(t, booked.Has("4:00 PM"))

	_, err := s.Reschedule(context.Background(), "a2", day, "2:30 PM", now)
	require.NoError(t, err)
	assert.True(t, s.BookedTimes(day).Has("2:30 PM"))

	for _, slot := range s.RescheduleSlots(day, now) {
		if slot.Value == "2:30 PM" {
			assert.True(t, slot.Disabled)
		}
	}
}

func TestDeleteRemovesLead(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Delete(context.Background(), "a1"))
	_, ok := s.Lead("a1")
	assert.False(t, ok)

	api.deleteErr = &apiclient.APIError{Status: http.StatusNotFound}
	require.Error(t, s.Delete(context.Background(), "a2"))
	assert.Equal(t, MsgDeleteFailed, s.ActionError())
	_, ok = s.Lead("a2")
	assert.True(t, ok, "not found keeps the snapshot until the next refresh")
}

func TestAddLeadPrependsToSnapshot(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	require.NoError(t, s.Refresh(context.Background()))

	lead, err := s.AddLead(context.Background(), leads.ManualLeadInput{
		Contact: leads.Contact{FullName: "Cy", PhoneNumber: "01700000003", Email: "CY@Example.com"},
		Date:    time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Time:    "11:00 AM",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "new-1", lead.ID)
	assert.Equal(t, "cy@example.com", lead.Email)
	assert.Equal(t, "Manual Booking", lead.Service)
	assert.Equal(t, "new-1", s.Leads()[0].ID)

	view := s.View(leadlist.Query{Search: "cy", Now: now}, 1)
	assert.Equal(t, 1, view.Total)
}

func TestAddUserSurfacesDuplicateMessage(t *testing.T) {
	api := &fakeAPI{addErr: &apiclient.APIError{Status: http.StatusBadRequest, Message: "Username or email already exists"}}
	s := newLoggedIn(t, api)

	require.Error(t, s.AddUser(context.Background(), apiclient.NewUser{Username: "x", Email: "x@y.z", Password: "pw"}))
	assert.Equal(t, "Username or email already exists", s.ActionError())
}

func TestLoginFailure(t *testing.T) {
	s := New(&fakeAPI{}, Options{})
	require.Error(t, s.Login(context.Background(), "admin", "wrong"))
	assert.False(t, s.LoggedIn())
	assert.Equal(t, MsgLoginFailed, s.ActionError())
}

func TestCloseDropsLateResults(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := newLoggedIn(t, api)
	s.Close()
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrClosed)
	assert.Empty(t, s.Leads())
}

func TestResumeUsesStoredCredential(t *testing.T) {
	api := &fakeAPI{records: seedRecords()}
	s := New(api, Options{})
	s.sleep = func(context.Context, time.Duration) error { return nil }

	assert.ErrorIs(t, s.Resume(apiclient.Credential{}), ErrLoggedOut)
	require.NoError(t, s.Resume(apiclient.Credential{Token: "stored", Username: "admin"}))
	assert.True(t, s.LoggedIn())
	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.Leads(), 2)
}

func TestBookedTimesUsePickedCalendarDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	api := &fakeAPI{records: seedRecords()}
	s := New(api, Options{Engine: availability.NewEngine(slots.HalfHourGrid(), availability.WithLocation(ny))})
	s.sleep = func(context.Context, time.Duration) error { return nil }
	require.NoError(t, s.Login(context.Background(), "admin", "secret"))
	require.NoError(t, s.Refresh(context.Background()))

	picked := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.True(t, s.BookedTimes(picked).Has("1:00 PM"))

	next, err := s.Reschedule(context.Background(), "a2", picked, "2:30 PM", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10T04:00:00.000Z", next.RawAppointmentDate)

	local := time.Date(2025, 6, 10, 0, 0, 0, 0, ny)
	assert.True(t, s.BookedTimes(picked).Has("2:30 PM"))
	assert.True(t, s.BookedTimes(local).Has("2:30 PM"))
	assert.False(t, s.BookedTimes(local.AddDate(0, 0, -1)).Has("2:30 PM"))
}
