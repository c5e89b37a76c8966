package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"classattend/internal/apperr"
	"classattend/internal/geo"
	"classattend/internal/session"
)

// RecordStore is the persistence surface for attendance records.
type RecordStore interface {
	Insert(ctx context.Context, rec Record) (Record, bool, error)
	Find(ctx context.Context, sessionID, studentID string) (*Record, error)
	Get(ctx context.Context, id string) (Record, error)
	SetVerified(ctx context.Context, id string) error
	CountManualSigns(ctx context.Context, studentID, courseID string) (int, error)
}

// SessionStore resolves sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// ZoneStore resolves geolocation zones.
type ZoneStore interface {
	Get(ctx context.Context, id string) (geo.Zone, error)
}

// Service runs the sign-off and verification rules. Sign is the only path
// that creates student records; Verify and ManualSign are the only mutations.
type Service struct {
	records  RecordStore
	sessions SessionStore
	zones    ZoneStore
	cache    *redis.Client
	grace    time.Duration
	quota    int
}

// NewService creates a service. cache may be nil; the quota fast path then
// falls through to the Postgres count.
func NewService(records RecordStore, sessions SessionStore, zones ZoneStore, cache *redis.Client, grace time.Duration, quota int) *Service {
	if grace <= 0 {
		grace = 3 * time.Hour
	}
	if quota <= 0 {
		quota = 2
	}
	return &Service{records: records, sessions: sessions, zones: zones, cache: cache, grace: grace, quota: quota}
}

// Sign records a student's self-reported attendance. Checks run in order and
// short-circuit: session window, geofence, duplicate suppression. A repeat
// attempt for the same (session, student) returns the existing record
// unchanged rather than erroring. No role bypasses any of the checks.
func (s *Service) Sign(ctx context.Context, sessionID, studentID string, pos geo.Point, now time.Time) (Record, error) {
	if sessionID == "" || studentID == "" {
		return Record{}, apperr.Validation("session and student are required")
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Record{}, err
	}
	if sess.StateAt(now) != session.StateOpen {
		signAttempts.WithLabelValues("session_closed").Inc()
		return Record{}, apperr.Policy(apperr.ReasonSessionClosed, "session is closed")
	}
	zone, err := s.zones.Get(ctx, sess.ZoneID)
	if err != nil {
		return Record{}, err
	}
	if !zone.Contains(pos) {
		signAttempts.WithLabelValues("outside_geofence").Inc()
		return Record{}, apperr.Policy(apperr.ReasonOutsideGeofence, "position is outside the session geofence")
	}
	if existing, err := s.records.Find(ctx, sessionID, studentID); err != nil {
		return Record{}, err
	} else if existing != nil {
		signAttempts.WithLabelValues("duplicate").Inc()
		return *existing, nil
	}

	rec, created, err := s.records.Insert(ctx, Record{
		SessionID: sessionID,
		StudentID: studentID,
		Timestamp: now,
		Latitude:  pos.Lat,
		Longitude: pos.Lon,
	})
	if err != nil {
		return Record{}, err
	}
	if created {
		signAttempts.WithLabelValues("accepted").Inc()
	} else {
		// Lost the insert race to a concurrent attempt; the constraint
		// handed back the winner's record.
		signAttempts.WithLabelValues("duplicate").Inc()
	}
	return rec, nil
}

// Verify flips a pending record to lecturer-signed. The acting lecturer must
// own the parent session; re-verifying is an idempotent success.
func (s *Service) Verify(ctx context.Context, recordID, lecturerID string) (Record, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	sess, err := s.sessions.Get(ctx, rec.SessionID)
	if err != nil {
		return Record{}, err
	}
	if !sess.OwnedBy(lecturerID) {
		return Record{}, apperr.Authorization("record belongs to another lecturer's session")
	}
	if rec.SignedByLecturer {
		return rec, nil
	}
	if err := s.records.SetVerified(ctx, rec.ID); err != nil {
		return Record{}, err
	}
	rec.SignedByLecturer = true
	recordsVerified.Inc()
	return rec, nil
}

// ManualSign lets the owning lecturer sign on behalf of a student who could
// not self-sign. Two bounds apply on top of ownership: the call must land
// between session start and the end of the grace window, and the student must
// not have exhausted the per-course manual-sign quota. An existing record for
// the pair is verified in place instead of charged against the quota.
func (s *Service) ManualSign(ctx context.Context, sessionID, studentID, lecturerID string, now time.Time) (Record, error) {
	if sessionID == "" || studentID == "" {
		return Record{}, apperr.Validation("session and student are required")
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Record{}, err
	}
	if !sess.OwnedBy(lecturerID) {
		return Record{}, apperr.Authorization("session belongs to another lecturer")
	}
	if now.Before(sess.StartTime) || now.Sub(sess.StartTime) > s.grace {
		return Record{}, apperr.Policy(apperr.ReasonOutsideGraceWindow, "manual sign-off is outside the grace window")
	}

	if existing, err := s.records.Find(ctx, sessionID, studentID); err != nil {
		return Record{}, err
	} else if existing != nil {
		if existing.SignedByLecturer {
			return *existing, nil
		}
		if err := s.records.SetVerified(ctx, existing.ID); err != nil {
			return Record{}, err
		}
		existing.SignedByLecturer = true
		recordsVerified.Inc()
		return *existing, nil
	}

	if err := s.checkQuota(ctx, studentID, sess.CourseID); err != nil {
		return Record{}, err
	}

	rec, created, err := s.records.Insert(ctx, Record{
		SessionID:        sessionID,
		StudentID:        studentID,
		Timestamp:        now,
		SignedByLecturer: true,
		ManualSigned:     true,
	})
	if err != nil {
		return Record{}, err
	}
	if created {
		manualSigns.Inc()
		s.bumpQuota(ctx, studentID, sess.CourseID)
	}
	return rec, nil
}

func quotaKey(studentID, courseID string) string {
	return fmt.Sprintf("classattend:manualsigns:%s:%s", studentID, courseID)
}

// checkQuota enforces the per-(student, course) manual-sign bound. Redis is a
// fast path only; Postgres holds the authoritative count.
func (s *Service) checkQuota(ctx context.Context, studentID, courseID string) error {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, quotaKey(studentID, courseID)).Int(); err == nil && cached >= s.quota {
			return apperr.Policy(apperr.ReasonManualQuotaExceeded, "manual-sign quota exceeded for this student and course")
		}
	}
	count, err := s.records.CountManualSigns(ctx, studentID, courseID)
	if err != nil {
		return apperr.Transient(err, "manual-sign quota lookup failed")
	}
	if count >= s.quota {
		if s.cache != nil {
			if err := s.cache.Set(ctx, quotaKey(studentID, courseID), count, 24*time.Hour).Err(); err != nil {
				log.Printf("quota cache set failed: %v", err)
			}
		}
		return apperr.Policy(apperr.ReasonManualQuotaExceeded, "manual-sign quota exceeded for this student and course")
	}
	return nil
}

func (s *Service) bumpQuota(ctx context.Context, studentID, courseID string) {
	if s.cache == nil {
		return
	}
	key := quotaKey(studentID, courseID)
	if err := s.cache.Incr(ctx, key).Err(); err != nil {
		log.Printf("quota cache incr failed: %v", err)
		return
	}
	if err := s.cache.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
		log.Printf("quota cache expire failed: %v", err)
	}
}
