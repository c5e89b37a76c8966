package attendance

import "time"

// Record is one student's attendance claim for a session, pending until a
// lecturer verifies it. At most one record exists per (session, student);
// the database enforces this with a uniqueness constraint, so the service
// level duplicate check is only a fast path. Records are never deleted in
// normal operation.
type Record struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session"`
	StudentID        string    `json:"student"`
	Timestamp        time.Time `json:"timestamp"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	SignedByLecturer bool      `json:"signed_by_lecturer"`
	ManualSigned     bool      `json:"manual_signed"`
	CreatedAt        time.Time `json:"created_at"`
}
