package session

import "time"

// State of a session, derived from the clock on every read, never stored.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Session is a single timed, location-bound occurrence of a course meeting.
// It is the sole aggregation root for its attendance records. While open it
// is exclusively owned by the lecturer who started it; once closed it becomes
// shared read-only history.
type Session struct {
	ID          string    `json:"id"`
	TimetableID *string   `json:"timetable_id,omitempty"`
	LecturerID  string    `json:"lecturer_id"`
	CourseID    string    `json:"course_id"`
	ZoneID      string    `json:"geolocation_zone_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsMakeup    bool      `json:"is_makeup_class"`
	CreatedAt   time.Time `json:"created_at"`
}

// StateAt reports the session state at the given instant. The window is
// inclusive on both ends: exactly at end_time the session is still open.
func (s Session) StateAt(now time.Time) State {
	if !now.Before(s.StartTime) && !now.After(s.EndTime) {
		return StateOpen
	}
	return StateClosed
}

// OwnedBy reports whether the lecturer opened this session.
func (s Session) OwnedBy(lecturerID string) bool {
	return s.LecturerID == lecturerID
}
