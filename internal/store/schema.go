package store

import "context"

// The one-record-per-(session, student) invariant lives here as a uniqueness
// constraint; service-level duplicate checks are a fast path over the network
// and never the source of truth.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS geolocation_zones (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		lat_a DOUBLE PRECISION NOT NULL, lon_a DOUBLE PRECISION NOT NULL,
		lat_b DOUBLE PRECISION NOT NULL, lon_b DOUBLE PRECISION NOT NULL,
		lat_c DOUBLE PRECISION NOT NULL, lon_c DOUBLE PRECISION NOT NULL,
		lat_d DOUBLE PRECISION NOT NULL, lon_d DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS timetable_slots (
		id UUID PRIMARY KEY,
		course_id TEXT NOT NULL,
		lecturer_id TEXT NOT NULL,
		day_of_week SMALLINT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		is_makeup BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_sessions (
		id UUID PRIMARY KEY,
		timetable_id UUID REFERENCES timetable_slots(id),
		lecturer_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		zone_id UUID NOT NULL REFERENCES geolocation_zones(id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		is_makeup BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES attendance_sessions(id),
		student_id TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		signed_by_lecturer BOOLEAN NOT NULL DEFAULT FALSE,
		manual_signed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (session_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS timetable_adherence (
		id UUID PRIMARY KEY,
		lecturer_id TEXT NOT NULL,
		session_id UUID NOT NULL UNIQUE REFERENCES attendance_sessions(id),
		started_on_time BOOLEAN NOT NULL,
		ended_on_time BOOLEAN NOT NULL,
		deviation_minutes INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_session ON attendance_records (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_records_student ON attendance_records (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_lecturer ON attendance_sessions (lecturer_id)`,
}

// Migrate applies the schema statements in order.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
