package geo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"classattend/internal/apperr"
)

// Repository persists geolocation zones in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const zoneColumns = `id, name, lat_a, lon_a, lat_b, lon_b, lat_c, lon_c, lat_d, lon_d, created_at`

func scanZone(row interface{ Scan(...any) error }) (Zone, error) {
	var z Zone
	err := row.Scan(&z.ID, &z.Name,
		&z.Corners[0].Lat, &z.Corners[0].Lon,
		&z.Corners[1].Lat, &z.Corners[1].Lon,
		&z.Corners[2].Lat, &z.Corners[2].Lon,
		&z.Corners[3].Lat, &z.Corners[3].Lon,
		&z.CreatedAt)
	return z, err
}

// Insert writes a new zone.
func (r *Repository) Insert(ctx context.Context, z Zone) (Zone, error) {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO geolocation_zones (id, name, lat_a, lon_a, lat_b, lon_b, lat_c, lon_c, lat_d, lon_d)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, z.ID, z.Name,
		z.Corners[0].Lat, z.Corners[0].Lon,
		z.Corners[1].Lat, z.Corners[1].Lon,
		z.Corners[2].Lat, z.Corners[2].Lon,
		z.Corners[3].Lat, z.Corners[3].Lon)
	if err := row.Scan(&z.CreatedAt); err != nil {
		return Zone{}, err
	}
	return z, nil
}

// Get returns a single zone by id.
func (r *Repository) Get(ctx context.Context, id string) (Zone, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM geolocation_zones WHERE id = $1`, id)
	z, err := scanZone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Zone{}, apperr.Validation("zone %s not found", id)
	}
	return z, err
}

// List returns all zones ordered by name.
func (r *Repository) List(ctx context.Context) ([]Zone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+zoneColumns+` FROM geolocation_zones ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var zones []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// openSessionCount counts open sessions referencing the zone. A zone is
// immutable while any session using it is still open.
func (r *Repository) openSessionCount(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_sessions
		WHERE zone_id = $1 AND end_time >= NOW()
	`, id).Scan(&n)
	return n, err
}

// Update rewrites a zone's name and corners, rejecting while the zone is
// referenced by an open session.
func (r *Repository) Update(ctx context.Context, z Zone) (Zone, error) {
	if n, err := r.openSessionCount(ctx, z.ID); err != nil {
		return Zone{}, err
	} else if n > 0 {
		return Zone{}, apperr.Policy(apperr.ReasonZoneInUse, "zone is referenced by an open session")
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE geolocation_zones
		SET name = $2, lat_a = $3, lon_a = $4, lat_b = $5, lon_b = $6,
		    lat_c = $7, lon_c = $8, lat_d = $9, lon_d = $10
		WHERE id = $1
		RETURNING created_at
	`, z.ID, z.Name,
		z.Corners[0].Lat, z.Corners[0].Lon,
		z.Corners[1].Lat, z.Corners[1].Lon,
		z.Corners[2].Lat, z.Corners[2].Lon,
		z.Corners[3].Lat, z.Corners[3].Lon)
	if err := row.Scan(&z.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Zone{}, apperr.Validation("zone %s not found", z.ID)
		}
		return Zone{}, err
	}
	return z, nil
}

// Delete removes a zone, with the same open-session restriction as Update.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if n, err := r.openSessionCount(ctx, id); err != nil {
		return err
	} else if n > 0 {
		return apperr.Policy(apperr.ReasonZoneInUse, "zone is referenced by an open session")
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM geolocation_zones WHERE id = $1`, id)
	return err
}
