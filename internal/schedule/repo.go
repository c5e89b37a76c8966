package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"classattend/internal/apperr"
)

// Repository persists timetable slots in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new slot after validation.
func (r *Repository) Insert(ctx context.Context, s Slot) (Slot, error) {
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO timetable_slots (id, course_id, lecturer_id, day_of_week, start_time, end_time, is_makeup)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.CourseID, s.LecturerID, int(s.Day), s.StartTime, s.EndTime, s.IsMakeup)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Slot{}, err
	}
	return s, nil
}

// Get returns a single slot by id.
func (r *Repository) Get(ctx context.Context, id string) (Slot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, course_id, lecturer_id, day_of_week, start_time, end_time, is_makeup, created_at
		FROM timetable_slots WHERE id = $1
	`, id)
	var s Slot
	var day int
	err := row.Scan(&s.ID, &s.CourseID, &s.LecturerID, &day, &s.StartTime, &s.EndTime, &s.IsMakeup, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, apperr.Validation("timetable slot %s not found", id)
	}
	if err != nil {
		return Slot{}, err
	}
	s.Day = time.Weekday(day)
	return s, nil
}

// List returns slots, optionally filtered by course and lecturer.
func (r *Repository) List(ctx context.Context, courseID, lecturerID string) ([]Slot, error) {
	query := `SELECT id, course_id, lecturer_id, day_of_week, start_time, end_time, is_makeup, created_at FROM timetable_slots`
	args := []any{}
	clauses := []string{}
	if courseID != "" {
		args = append(args, courseID)
		clauses = append(clauses, "course_id = $1")
	}
	if lecturerID != "" {
		args = append(args, lecturerID)
		if len(args) == 1 {
			clauses = append(clauses, "lecturer_id = $1")
		} else {
			clauses = append(clauses, "lecturer_id = $2")
		}
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY day_of_week, start_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []Slot
	for rows.Next() {
		var s Slot
		var day int
		if err := rows.Scan(&s.ID, &s.CourseID, &s.LecturerID, &day, &s.StartTime, &s.EndTime, &s.IsMakeup, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Day = time.Weekday(day)
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
