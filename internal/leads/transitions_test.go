package leads

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 14, 5, 0, 0, time.UTC)

func sampleLead(t *testing.T) Lead {
	t.Helper()
	lead, err := Ingest(sampleRaw())
	require.NoError(t, err)
	return lead
}

func TestTransitionPrependsStatusEntry(t *testing.T) {
	lead := sampleLead(t)
	before := len(lead.Activity)

	next, patch, err := Transition(lead, StatusMeeting2, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, StatusMeeting2, next.Status)
	require.Len(t, next.Activity, before+1)
	assert.Equal(t, Activity{Status: StatusMeeting2, Timestamp: "June 1, 2025, 02:05 PM"}, next.Activity[0])
	assert.Equal(t, lead.Activity, next.Activity[1:])

	require.NotNil(t, patch.Status)
	assert.Equal(t, StatusMeeting2, *patch.Status)
	assert.Equal(t, next.Activity, patch.Activity)
	assert.Nil(t, patch.Date)

	assert.Equal(t, StatusMeeting1, lead.Status, "input lead must not change")
	assert.Len(t, lead.Activity, before)
}

func TestTransitionOutOfTerminal(t *testing.T) {
	lead := sampleLead(t)
	lost, _, err := Transition(lead, StatusLost, fixedNow)
	require.NoError(t, err)
	assert.False(t, lost.ShowsAppointment())

	back, _, err := Transition(lost, StatusMeeting3, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusMeeting3, back.Status)
	assert.True(t, back.ShowsAppointment())
	assert.Len(t, back.Activity, len(lead.Activity)+2)
}

func TestTransitionRejectsUnknown(t *testing.T) {
	_, _, err := Transition(sampleLead(t), Status("Archived"), fixedNow)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestAddNote(t *testing.T) {
	lead := sampleLead(t)
	next, patch, err := AddNote(lead, "  called, left voicemail ", fixedNow)
	require.NoError(t, err)
	assert.Len(t, next.Activity, len(lead.Activity)+1)
	assert.Equal(t, "called, left voicemail", next.Activity[0].Text)
	assert.True(t, next.Activity[0].IsNote())
	assert.Equal(t, "called, left voicemail", next.LatestNote)
	require.NotNil(t, patch.LatestNote)
	assert.Equal(t, next.LatestNote, *patch.LatestNote)
	assert.Nil(t, patch.Status)
}

func TestAddNoteBlankIsValidationError(t *testing.T) {
	lead := sampleLead(t)
	next, patch, err := AddNote(lead, "   ", fixedNow)
	assert.ErrorIs(t, err, ErrEmptyNote)
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Please enter a note before adding.", verr.Message)
	assert.True(t, patch.Empty())
	assert.Equal(t, len(lead.Activity), len(next.Activity))
}

func TestReschedule(t *testing.T) {
	lead := sampleLead(t)
	date := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	next, patch, err := Reschedule(lead, date, "4:00 PM", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Appointment booked for June 12, 2025 at 4:00 PM", next.Activity[0].Text)
	assert.Equal(t, "2025-06-12T00:00:00.000Z", next.RawAppointmentDate)
	assert.Equal(t, "4:00 PM", next.AppointmentTime)
	require.NotNil(t, patch.Date)
	require.NotNil(t, patch.Time)
	assert.Equal(t, "4:00 PM", *patch.Time)
	assert.Equal(t, lead.Status, next.Status)
}

func TestRescheduleRequiresBoth(t *testing.T) {
	lead := sampleLead(t)
	_, _, err := Reschedule(lead, time.Time{}, "4:00 PM", fixedNow)
	assert.ErrorIs(t, err, ErrIncompleteSchedule)
	_, _, err = Reschedule(lead, fixedNow, "", fixedNow)
	assert.ErrorIs(t, err, ErrIncompleteSchedule)
}

func TestActivityNeverShrinks(t *testing.T) {
	lead := sampleLead(t)
	n := len(lead.Activity)
	ops := []func(Lead) (Lead, Patch, error){
		func(l Lead) (Lead, Patch, error) { return Transition(l, StatusNeedToCall, fixedNow) },
		func(l Lead) (Lead, Patch, error) { return AddNote(l, "note", fixedNow) },
		func(l Lead) (Lead, Patch, error) { return Reschedule(l, fixedNow, "9:00 PM", fixedNow) },
		func(l Lead) (Lead, Patch, error) { return Transition(l, StatusConverted, fixedNow) },
	}
	for i, op := range ops {
		next, _, err := op(lead)
		require.NoError(t, err)
		assert.Len(t, next.Activity, n+1, "op %d", i)
		lead, n = next, n+1
	}
}

func TestPatchApply(t *testing.T) {
	raw := sampleRaw()
	lead := sampleLead(t)
	next, patch, err := AddNote(lead, "hello", fixedNow)
	require.NoError(t, err)

	merged := raw.Apply(patch)
	assert.Equal(t, next.Activity, merged.Activity)
	assert.Equal(t, "hello", merged.LatestNote)
	assert.Equal(t, raw.Status, merged.Status)

	bad := Status("nope")
	assert.ErrorIs(t, Patch{Status: &bad}.Validate(), ErrUnknownStatus)
}
