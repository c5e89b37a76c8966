package main

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classattend/internal/adherence"
	"classattend/internal/schedule"
	"classattend/internal/session"
)

func newTestWorker(t *testing.T) (worker, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return worker{
		sessions:  session.NewRepository(db),
		slots:     schedule.NewRepository(db),
		adherence: adherence.NewRepository(db),
		tolerance: 5 * time.Minute,
	}, mock
}

var sessionCols = []string{"id", "timetable_id", "lecturer_id", "course_id", "zone_id", "start_time", "end_time", "is_makeup", "created_at"}

func expectSession(mock sqlmock.Sqlmock, id string, timetableID any, start, end time.Time, makeup bool) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance_sessions WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(id, timetableID, "lec-1", "cs101", "zone-1", start, end, makeup, start))
}

func TestProcessWritesAdherenceForTimetabledSession(t *testing.T) {
	w, mock := newTestWorker(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // a Monday
	end := start.Add(2 * time.Hour)

	expectSession(mock, "sess-1", "slot-1", start, end, false)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM timetable_slots WHERE id = $1`)).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "lecturer_id", "day_of_week", "start_time", "end_time", "is_makeup", "created_at"}).
			AddRow("slot-1", "cs101", "lec-1", 1, "09:00", "11:00", false, start))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO timetable_adherence`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(end))

	require.NoError(t, w.process(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A makeup session is allowed to run outside its slot, so it is never scored
// even when it carries a timetable reference.
func TestProcessSkipsMakeupSession(t *testing.T) {
	w, mock := newTestWorker(t)
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	expectSession(mock, "sess-2", "slot-1", start, start.Add(time.Hour), true)

	require.NoError(t, w.process(context.Background(), "sess-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessSkipsAdHocSession(t *testing.T) {
	w, mock := newTestWorker(t)
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	expectSession(mock, "sess-3", nil, start, start.Add(time.Hour), false)

	require.NoError(t, w.process(context.Background(), "sess-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
