package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"classattend/internal/apperr"
)

// ListQuery is the explicit, immutable filter/pagination parameter set for
// record listings.
type ListQuery struct {
	SessionID string
	StudentID string
	Pending   bool
	Limit     int
	Offset    int
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, session_id, student_id, occurred_at, latitude, longitude, signed_by_lecturer, manual_signed, created_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Timestamp,
		&rec.Latitude, &rec.Longitude, &rec.SignedByLecturer, &rec.ManualSigned, &rec.CreatedAt)
	return rec, err
}

// Insert writes a record, honoring the (session_id, student_id) uniqueness
// constraint: on conflict nothing is written and the existing record comes
// back with created=false. This is the authoritative duplicate suppression;
// concurrent sign attempts race here, not in the service.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, session_id, student_id, occurred_at, latitude, longitude, signed_by_lecturer, manual_signed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id, student_id) DO NOTHING
		RETURNING created_at
	`, rec.ID, rec.SessionID, rec.StudentID, rec.Timestamp, rec.Latitude, rec.Longitude, rec.SignedByLecturer, rec.ManualSigned)
	err := row.Scan(&rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ferr := r.Find(ctx, rec.SessionID, rec.StudentID)
		if ferr != nil {
			return Record{}, false, ferr
		}
		if existing == nil {
			return Record{}, false, fmt.Errorf("record for session %s student %s vanished after conflict", rec.SessionID, rec.StudentID)
		}
		return *existing, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Find returns the record for a (session, student) pair, nil when absent.
func (r *Repository) Find(ctx context.Context, sessionID, studentID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperr.Validation("record %s not found", id)
	}
	return rec, err
}

// SetVerified flips signed_by_lecturer. The flip is one-way; nothing ever
// un-verifies a record.
func (r *Repository) SetVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records SET signed_by_lecturer = TRUE WHERE id = $1
	`, id)
	return err
}

// CountManualSigns counts prior lecturer-initiated records for a student in a
// course, across all of that course's sessions. This is the authoritative
// quota counter.
func (r *Repository) CountManualSigns(ctx context.Context, studentID, courseID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM attendance_records rec
		JOIN attendance_sessions s ON s.id = rec.session_id
		WHERE rec.student_id = $1 AND s.course_id = $2 AND rec.manual_signed
	`, studentID, courseID).Scan(&n)
	return n, err
}

// List returns records matching the query plus the unpaginated total.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Record, int, error) {
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
	if q.SessionID != "" {
		add("session_id = $%d", q.SessionID)
	}
	if q.StudentID != "" {
		add("student_id = $%d", q.StudentID)
	}
	if q.Pending {
		if where == "" {
			where = " WHERE NOT signed_by_lecturer"
		} else {
			where += " AND NOT signed_by_lecturer"
		}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records` + where +
		fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, rec)
	}
	return res, total, rows.Err()
}
