package session

import (
	"context"
	"log"
	"time"

	"classattend/internal/apperr"
	"classattend/internal/geo"
	"classattend/internal/queue"
	"classattend/internal/schedule"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	SetEndTime(ctx context.Context, id string, end time.Time) error
}

// SlotStore resolves timetable slots.
type SlotStore interface {
	Get(ctx context.Context, id string) (schedule.Slot, error)
}

// ZoneStore resolves geolocation zones.
type ZoneStore interface {
	Get(ctx context.Context, id string) (geo.Zone, error)
}

// Publisher emits session lifecycle events for the worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service opens and closes attendance sessions, enforcing timetable
// conformance at open time.
type Service struct {
	store Store
	slots SlotStore
	zones ZoneStore
	queue Publisher
}

// NewService creates a service backed by the given stores.
func NewService(store Store, slots SlotStore, zones ZoneStore, q Publisher) *Service {
	return &Service{store: store, slots: slots, zones: zones, queue: q}
}

// OpenRequest carries the lecturer's session-open payload. StartTime is
// always the open instant, never client-chosen.
type OpenRequest struct {
	TimetableID *string
	LecturerID  string
	CourseID    string
	ZoneID      string
	EndTime     time.Time
	IsMakeup    bool
}

// Open validates and creates a session, open as of now. A session whose span
// is not inside its linked timetable slot must be flagged as a makeup class,
// otherwise the open is rejected; makeup sessions bypass the slot check.
func (s *Service) Open(ctx context.Context, req OpenRequest, now time.Time) (Session, error) {
	if req.LecturerID == "" || req.CourseID == "" || req.ZoneID == "" {
		return Session{}, apperr.Validation("lecturer_id, course_id and geolocation_zone_id are required")
	}
	if !req.EndTime.After(now) {
		return Session{}, apperr.Validation("end_time must be in the future")
	}
	if _, err := s.zones.Get(ctx, req.ZoneID); err != nil {
		return Session{}, err
	}

	if !req.IsMakeup {
		if req.TimetableID == nil {
			return Session{}, apperr.Policy(apperr.ReasonTimetableNonconformant,
				"session has no timetable slot and is not flagged as a makeup class")
		}
		slot, err := s.slots.Get(ctx, *req.TimetableID)
		if err != nil {
			return Session{}, err
		}
		if !slot.ContainsSpan(now, req.EndTime) {
			return Session{}, apperr.Policy(apperr.ReasonTimetableNonconformant,
				"session time falls outside the timetable slot and is not flagged as a makeup class")
		}
	}

	created, err := s.store.Insert(ctx, Session{
		TimetableID: req.TimetableID,
		LecturerID:  req.LecturerID,
		CourseID:    req.CourseID,
		ZoneID:      req.ZoneID,
		StartTime:   now,
		EndTime:     req.EndTime,
		IsMakeup:    req.IsMakeup,
	})
	if err != nil {
		return Session{}, err
	}
	sessionsOpened.Inc()
	return created, nil
}

// Close ends a session before its scheduled cutoff. Only the owning lecturer
// may close; closing an already-closed session is an idempotent no-op. A
// successful close publishes a session_closed event for the adherence worker.
func (s *Service) Close(ctx context.Context, id, lecturerID string, now time.Time) (Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.OwnedBy(lecturerID) {
		return Session{}, apperr.Authorization("session belongs to another lecturer")
	}
	if sess.StateAt(now) == StateClosed {
		return sess, nil
	}
	if err := s.store.SetEndTime(ctx, id, now); err != nil {
		return Session{}, err
	}
	sess.EndTime = now
	sessionsClosed.Inc()
	if s.queue != nil {
		if err := s.queue.Publish(ctx, queue.SessionClosed(sess.ID)); err != nil {
			log.Printf("queue publish failed for session %s: %v", sess.ID, err)
		}
	}
	return sess, nil
}
