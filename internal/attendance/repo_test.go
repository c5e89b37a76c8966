package attendance

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepositoryInsertCreates(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO attendance_records`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	rec, created, err := repo.Insert(context.Background(), Record{
		SessionID: "s1",
		StudentID: "stu-1",
		Timestamp: now,
		Latitude:  40.7136,
		Longitude: -74.0045,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, now, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A conflicting insert returns the existing row instead of erroring; the
// uniqueness constraint, not the caller, decides the winner.
func TestRepositoryInsertConflictReturnsExisting(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO attendance_records`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, session_id, student_id, occurred_at, latitude, longitude, signed_by_lecturer, manual_signed, created_at FROM attendance_records`)).
		WithArgs("s1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "student_id", "occurred_at", "latitude", "longitude", "signed_by_lecturer", "manual_signed", "created_at"}).
			AddRow("rec-existing", "s1", "stu-1", now.Add(-time.Minute), 40.7136, -74.0045, false, false, now.Add(-time.Minute)))

	rec, created, err := repo.Insert(context.Background(), Record{
		SessionID: "s1",
		StudentID: "stu-1",
		Timestamp: now,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "rec-existing", rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCountManualSigns(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs("stu-1", "cs101").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountManualSigns(context.Background(), "stu-1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
