package adherence

import (
	"time"

	"classattend/internal/schedule"
	"classattend/internal/session"
)

// DefaultTolerance is the grace applied when judging on-time start and end.
const DefaultTolerance = 5 * time.Minute

// Adherence compares a closed session's actual timing against its timetable
// slot. Written once per session, read-only thereafter.
type Adherence struct {
	ID               string    `json:"id"`
	LecturerID       string    `json:"lecturer"`
	SessionID        string    `json:"session"`
	StartedOnTime    bool      `json:"started_on_time"`
	EndedOnTime      bool      `json:"ended_on_time"`
	DeviationMinutes int       `json:"deviation_minutes"`
	CreatedAt        time.Time `json:"created_at"`
}

// Compute derives the adherence row for a closed session. A pure makeup
// session carries no timetable slot, so adherence is not applicable there;
// callers skip it before reaching this point. Deviation is signed: positive
// means a late start.
func Compute(sess session.Session, slot schedule.Slot, tolerance time.Duration) (Adherence, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	scheduledStart, scheduledEnd, err := slot.WindowOn(sess.StartTime)
	if err != nil {
		return Adherence{}, err
	}
	startDelta := sess.StartTime.Sub(scheduledStart)
	endDelta := sess.EndTime.Sub(scheduledEnd)
	return Adherence{
		LecturerID:       sess.LecturerID,
		SessionID:        sess.ID,
		StartedOnTime:    absDuration(startDelta) <= tolerance,
		EndedOnTime:      absDuration(endDelta) <= tolerance,
		DeviationMinutes: int(startDelta.Round(time.Minute) / time.Minute),
	}, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
