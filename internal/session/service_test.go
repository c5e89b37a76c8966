package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classattend/internal/apperr"
	"classattend/internal/geo"
	"classattend/internal/queue"
	"classattend/internal/schedule"
)

type fakeStore struct {
	sessions map[string]Session
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]Session)}
}

func (f *fakeStore) Insert(_ context.Context, s Session) (Session, error) {
	f.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("sess-%d", f.seq)
	}
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return Session{}, apperr.Validation("session %s not found", id)
	}
	return s, nil
}

func (f *fakeStore) SetEndTime(_ context.Context, id string, end time.Time) error {
	s := f.sessions[id]
	s.EndTime = end
	f.sessions[id] = s
	return nil
}

type fakeSlots map[string]schedule.Slot

func (f fakeSlots) Get(_ context.Context, id string) (schedule.Slot, error) {
	s, ok := f[id]
	if !ok {
		return schedule.Slot{}, apperr.Validation("timetable slot %s not found", id)
	}
	return s, nil
}

type fakeZones map[string]geo.Zone

func (f fakeZones) Get(_ context.Context, id string) (geo.Zone, error) {
	z, ok := f[id]
	if !ok {
		return geo.Zone{}, apperr.Validation("zone %s not found", id)
	}
	return z, nil
}

type fakePublisher struct {
	msgs []queue.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg queue.Message) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

// 2026-03-02 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func testService() (*Service, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	slots := fakeSlots{
		"slot-1": {ID: "slot-1", CourseID: "cs101", LecturerID: "lec-1", Day: time.Monday, StartTime: "09:00", EndTime: "11:00"},
	}
	zones := fakeZones{"zone-1": {ID: "zone-1", Name: "Main Campus"}}
	pub := &fakePublisher{}
	return NewService(store, slots, zones, pub), store, pub
}

func TestOpenConformantSession(t *testing.T) {
	svc, _, _ := testService()
	slotID := "slot-1"
	now := monday(9, 0)

	sess, err := svc.Open(context.Background(), OpenRequest{
		TimetableID: &slotID,
		LecturerID:  "lec-1",
		CourseID:    "cs101",
		ZoneID:      "zone-1",
		EndTime:     monday(11, 0),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, now, sess.StartTime)
	assert.Equal(t, StateOpen, sess.StateAt(now))
	assert.False(t, sess.IsMakeup)
}

func TestOpenRejectsNonconformantWithoutMakeupFlag(t *testing.T) {
	svc, _, _ := testService()
	slotID := "slot-1"

	// A Tuesday start against a Monday slot.
	_, err := svc.Open(context.Background(), OpenRequest{
		TimetableID: &slotID,
		LecturerID:  "lec-1",
		CourseID:    "cs101",
		ZoneID:      "zone-1",
		EndTime:     monday(11, 0).AddDate(0, 0, 1),
	}, monday(9, 0).AddDate(0, 0, 1))
	require.Error(t, err)
	assert.Equal(t, apperr.KindPolicy, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonTimetableNonconformant, apperr.ReasonOf(err))
}

func TestOpenRejectsNoSlotWithoutMakeupFlag(t *testing.T) {
	svc, _, _ := testService()
	_, err := svc.Open(context.Background(), OpenRequest{
		LecturerID: "lec-1",
		CourseID:   "cs101",
		ZoneID:     "zone-1",
		EndTime:    monday(11, 0),
	}, monday(9, 0))
	require.Error(t, err)
	assert.Equal(t, apperr.ReasonTimetableNonconformant, apperr.ReasonOf(err))
}

func TestOpenMakeupBypassesSlotCheck(t *testing.T) {
	svc, _, _ := testService()
	// Saturday, nowhere near the slot; allowed because it is a makeup class.
	start := monday(14, 0).AddDate(0, 0, 5)
	sess, err := svc.Open(context.Background(), OpenRequest{
		LecturerID: "lec-1",
		CourseID:   "cs101",
		ZoneID:     "zone-1",
		EndTime:    start.Add(2 * time.Hour),
		IsMakeup:   true,
	}, start)
	require.NoError(t, err)
	assert.True(t, sess.IsMakeup)
	assert.Nil(t, sess.TimetableID)
}

func TestOpenValidation(t *testing.T) {
	svc, _, _ := testService()

	_, err := svc.Open(context.Background(), OpenRequest{
		CourseID: "cs101", ZoneID: "zone-1", EndTime: monday(11, 0), IsMakeup: true,
	}, monday(9, 0))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Open(context.Background(), OpenRequest{
		LecturerID: "lec-1", CourseID: "cs101", ZoneID: "zone-1",
		EndTime: monday(8, 0), IsMakeup: true,
	}, monday(9, 0))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCloseSession(t *testing.T) {
	svc, store, pub := testService()
	start := monday(9, 0)
	sess, err := svc.Open(context.Background(), OpenRequest{
		LecturerID: "lec-1", CourseID: "cs101", ZoneID: "zone-1",
		EndTime: monday(11, 0), IsMakeup: true,
	}, start)
	require.NoError(t, err)

	// A foreign lecturer may not close.
	_, err = svc.Close(context.Background(), sess.ID, "lec-2", monday(10, 0))
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	closed, err := svc.Close(context.Background(), sess.ID, "lec-1", monday(10, 0))
	require.NoError(t, err)
	assert.Equal(t, monday(10, 0), closed.EndTime)
	assert.Equal(t, StateClosed, closed.StateAt(monday(10, 1)))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, queue.TypeSessionClosed, pub.msgs[0].Type)
	assert.Equal(t, sess.ID, string(pub.msgs[0].Body))

	// Closing again is an idempotent no-op: no event, end time untouched.
	again, err := svc.Close(context.Background(), sess.ID, "lec-1", monday(10, 30))
	require.NoError(t, err)
	assert.Equal(t, monday(10, 0), again.EndTime)
	assert.Len(t, pub.msgs, 1)
	assert.Equal(t, monday(10, 0), store.sessions[sess.ID].EndTime)
}
