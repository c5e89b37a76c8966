package adherence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ListQuery is the explicit filter/pagination parameter set for adherence
// listings.
type ListQuery struct {
	LecturerID string
	Limit      int
	Offset     int
}

// Repository persists adherence rows in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes the adherence row for a session. One row per session; a
// redelivered close event hits the conflict and leaves the original intact,
// so the worker is retry-safe.
func (r *Repository) Upsert(ctx context.Context, a Adherence) (Adherence, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO timetable_adherence (id, lecturer_id, session_id, started_on_time, ended_on_time, deviation_minutes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING created_at
	`, a.ID, a.LecturerID, a.SessionID, a.StartedOnTime, a.EndedOnTime, a.DeviationMinutes)
	err := row.Scan(&a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ferr := r.GetBySession(ctx, a.SessionID)
		if ferr != nil {
			return Adherence{}, ferr
		}
		return existing, nil
	}
	if err != nil {
		return Adherence{}, err
	}
	return a, nil
}

// GetBySession returns the adherence row for a session.
func (r *Repository) GetBySession(ctx context.Context, sessionID string) (Adherence, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, lecturer_id, session_id, started_on_time, ended_on_time, deviation_minutes, created_at
		FROM timetable_adherence WHERE session_id = $1
	`, sessionID)
	var a Adherence
	err := row.Scan(&a.ID, &a.LecturerID, &a.SessionID, &a.StartedOnTime, &a.EndedOnTime, &a.DeviationMinutes, &a.CreatedAt)
	return a, err
}

// List returns adherence rows matching the query plus the unpaginated total.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Adherence, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	where := ""
	args := []any{}
	if q.LecturerID != "" {
		args = append(args, q.LecturerID)
		where = " WHERE lecturer_id = $1"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timetable_adherence`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, lecturer_id, session_id, started_on_time, ended_on_time, deviation_minutes, created_at FROM timetable_adherence` +
		where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Adherence
	for rows.Next() {
		var a Adherence
		if err := rows.Scan(&a.ID, &a.LecturerID, &a.SessionID, &a.StartedOnTime, &a.EndedOnTime, &a.DeviationMinutes, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, a)
	}
	return res, total, rows.Err()
}
