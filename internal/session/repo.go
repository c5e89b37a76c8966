package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classattend/internal/apperr"
)

// ListQuery is the explicit, immutable filter/pagination parameter set for
// session listings.
type ListQuery struct {
	LecturerID string
	CourseID   string
	ZoneID     string
	Limit      int
	Offset     int
}

// Repository persists attendance sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, timetable_id, lecturer_id, course_id, zone_id, start_time, end_time, is_makeup, created_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var timetable sql.NullString
	err := row.Scan(&s.ID, &timetable, &s.LecturerID, &s.CourseID, &s.ZoneID,
		&s.StartTime, &s.EndTime, &s.IsMakeup, &s.CreatedAt)
	if err != nil {
		return Session{}, err
	}
	if timetable.Valid {
		s.TimetableID = &timetable.String
	}
	return s, nil
}

// Insert writes a new session.
func (r *Repository) Insert(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	var timetable any
	if s.TimetableID != nil {
		timetable = *s.TimetableID
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (id, timetable_id, lecturer_id, course_id, zone_id, start_time, end_time, is_makeup)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, s.ID, timetable, s.LecturerID, s.CourseID, s.ZoneID, s.StartTime, s.EndTime, s.IsMakeup)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Get returns a single session by id.
func (r *Repository) Get(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, apperr.Validation("session %s not found", id)
	}
	return s, err
}

// SetEndTime moves the session cutoff, used by explicit close.
func (r *Repository) SetEndTime(ctx context.Context, id string, end time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attendance_sessions SET end_time = $2 WHERE id = $1`, id, end)
	return err
}

// List returns sessions matching the query plus the unpaginated total.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Session, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	where := ""
	args := []any{}
	add := func(clause string, val any) {
		args = append(args, val)
		cond := fmt.Sprintf(clause, len(args))
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}
	if q.LecturerID != "" {
		add("lecturer_id = $%d", q.LecturerID)
	}
	if q.CourseID != "" {
		add("course_id = $%d", q.CourseID)
	}
	if q.ZoneID != "" {
		add("zone_id = $%d", q.ZoneID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions` + where +
		fmt.Sprintf(" ORDER BY start_time DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, s)
	}
	return res, total, rows.Err()
}

// ListClosedWithoutAdherence returns regular timetabled sessions that have
// passed their cutoff but have no adherence row yet. The worker sweeps these
// to catch sessions that closed by the clock rather than by explicit close.
// Makeup sessions are excluded; they are not scored against the timetable.
func (r *Repository) ListClosedWithoutAdherence(ctx context.Context, now time.Time, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.timetable_id, s.lecturer_id, s.course_id, s.zone_id, s.start_time, s.end_time, s.is_makeup, s.created_at
		FROM attendance_sessions s
		LEFT JOIN timetable_adherence a ON a.session_id = s.id
		WHERE s.end_time < $1 AND s.timetable_id IS NOT NULL AND NOT s.is_makeup AND a.id IS NULL
		ORDER BY s.end_time
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
