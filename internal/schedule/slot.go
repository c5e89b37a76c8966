package schedule

import (
	"time"

	"classattend/internal/apperr"
)

// Slot is one recurring weekly entry of the official timetable. Times are
// wall-clock "15:04" strings in the campus timezone.
type Slot struct {
	ID         string       `json:"id"`
	CourseID   string       `json:"course_id"`
	LecturerID string       `json:"lecturer_id"`
	Day        time.Weekday `json:"day_of_week"`
	StartTime  string       `json:"start_time"`
	EndTime    string       `json:"end_time"`
	IsMakeup   bool         `json:"is_makeup_class"`
	CreatedAt  time.Time    `json:"created_at"`
}

const clockLayout = "15:04"

// Validate checks the slot's wall-clock fields.
func (s Slot) Validate() error {
	start, err := time.Parse(clockLayout, s.StartTime)
	if err != nil {
		return apperr.Validation("start_time must be HH:MM: %v", err)
	}
	end, err := time.Parse(clockLayout, s.EndTime)
	if err != nil {
		return apperr.Validation("end_time must be HH:MM: %v", err)
	}
	if !end.After(start) {
		return apperr.Validation("end_time must be after start_time")
	}
	if s.Day < time.Sunday || s.Day > time.Saturday {
		return apperr.Validation("day_of_week out of range")
	}
	return nil
}

// minuteOfDay converts a parsed wall-clock time to minutes since midnight.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WindowOn anchors the slot's wall-clock window to the calendar date of the
// given instant, in that instant's location.
func (s Slot) WindowOn(day time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(clockLayout, s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("start_time must be HH:MM: %v", err)
	}
	end, err := time.Parse(clockLayout, s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("end_time must be HH:MM: %v", err)
	}
	y, m, d := day.Date()
	loc := day.Location()
	from := time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc)
	to := time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc)
	return from, to, nil
}

// ContainsSpan reports whether an actual [start, end] span falls on the slot's
// weekday and inside its wall-clock window.
func (s Slot) ContainsSpan(start, end time.Time) bool {
	if start.Weekday() != s.Day {
		return false
	}
	slotStart, err := time.Parse(clockLayout, s.StartTime)
	if err != nil {
		return false
	}
	slotEnd, err := time.Parse(clockLayout, s.EndTime)
	if err != nil {
		return false
	}
	from, to := minuteOfDay(slotStart), minuteOfDay(slotEnd)
	a, b := minuteOfDay(start), minuteOfDay(end)
	return a >= from && a <= to && b >= from && b <= to && !end.Before(start)
}
