package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// VehicleStore holds the live position snapshot, one row per vehicle. The
// poller is the only writer; query handlers read concurrently and rely on
// Postgres row-level isolation.
type VehicleStore struct {
	db *sql.DB
}

func NewVehicleStore(db *sql.DB) *VehicleStore {
	return &VehicleStore{db: db}
}

// EnsureSchema creates the buses table if the static import has not. All
// other tables are owned by the import process.
func (s *VehicleStore) EnsureSchema(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS buses (
		vehicle_id   TEXT PRIMARY KEY,
		route_id     TEXT,
		direction_id INTEGER,
		service_id   TEXT,
		lat          DOUBLE PRECISION NOT NULL,
		lon          DOUBLE PRECISION NOT NULL,
		heading      DOUBLE PRECISION,
		speed        DOUBLE PRECISION,
		last_updated TIMESTAMPTZ NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create buses table: %w", err)
	}
	return nil
}

// UpsertAll writes one poll cycle's positions in a single transaction, so a
// failed or cancelled cycle leaves the snapshot untouched.
func (s *VehicleStore) UpsertAll(ctx context.Context, positions []domain.VehiclePosition) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO buses (vehicle_id, route_id, direction_id, service_id, lat, lon, heading, speed, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (vehicle_id) DO UPDATE SET
			route_id     = EXCLUDED.route_id,
			direction_id = EXCLUDED.direction_id,
			service_id   = EXCLUDED.service_id,
			lat          = EXCLUDED.lat,
			lon          = EXCLUDED.lon,
			heading      = EXCLUDED.heading,
			speed        = EXCLUDED.speed,
			last_updated = EXCLUDED.last_updated`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx, p.VehicleID, p.RouteID, p.DirectionID, p.ServiceID,
			p.Lat, p.Lon, p.Heading, p.Speed, p.LastUpdated); err != nil {
			return fmt.Errorf("upsert vehicle %s: %w", p.VehicleID, err)
		}
	}

	return tx.Commit()
}

// List returns one page of positions. directionID only applies together with
// routeID; without a route it is ignored.
func (s *VehicleStore) List(ctx context.Context, routeID string, directionID *int, offset, limit int) ([]domain.VehiclePosition, int, error) {
	where := ""
	args := []any{}
	if routeID != "" {
		args = append(args, routeID)
		where = fmt.Sprintf(" WHERE route_id = $%d", len(args))
		if directionID != nil {
			args = append(args, *directionID)
			where += fmt.Sprintf(" AND direction_id = $%d", len(args))
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM buses"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count buses: %w", err)
	}

	args = append(args, offset, limit)
	q := fmt.Sprintf(`SELECT vehicle_id, route_id, direction_id, service_id, lat, lon, heading, speed, last_updated
		FROM buses%s ORDER BY vehicle_id OFFSET $%d LIMIT $%d`, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query buses: %w", err)
	}
	defer rows.Close()

	var positions []domain.VehiclePosition
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		positions = append(positions, p)
	}
	return positions, total, rows.Err()
}

func (s *VehicleStore) Get(ctx context.Context, vehicleID string) (domain.VehiclePosition, error) {
	q := `SELECT vehicle_id, route_id, direction_id, service_id, lat, lon, heading, speed, last_updated
	      FROM buses WHERE vehicle_id = $1`
	p, err := scanPosition(s.db.QueryRowContext(ctx, q, vehicleID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VehiclePosition{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.VehiclePosition{}, fmt.Errorf("query bus %s: %w", vehicleID, err)
	}
	return p, nil
}

// Snapshot returns every tracked position, used to seed new websocket
// subscribers before the next poll cycle arrives.
func (s *VehicleStore) Snapshot(ctx context.Context) ([]domain.VehiclePosition, error) {
	q := `SELECT vehicle_id, route_id, direction_id, service_id, lat, lon, heading, speed, last_updated
	      FROM buses ORDER BY vehicle_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query buses: %w", err)
	}
	defer rows.Close()

	var positions []domain.VehiclePosition
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *VehicleStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM buses").Scan(&n)
	return n, err
}

// LastUpdated reports the newest position timestamp, zero when empty.
func (s *VehicleStore) LastUpdated(ctx context.Context) (time.Time, error) {
	var ts sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(last_updated) FROM buses").Scan(&ts); err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

func scanPosition(scan func(...any) error) (domain.VehiclePosition, error) {
	var p domain.VehiclePosition
	var routeID, serviceID sql.NullString
	var directionID sql.NullInt64
	var heading, speed sql.NullFloat64
	if err := scan(&p.VehicleID, &routeID, &directionID, &serviceID,
		&p.Lat, &p.Lon, &heading, &speed, &p.LastUpdated); err != nil {
		return domain.VehiclePosition{}, err
	}
	if routeID.Valid {
		p.RouteID = &routeID.String
	}
	if directionID.Valid {
		v := int(directionID.Int64)
		p.DirectionID = &v
	}
	if serviceID.Valid {
		p.ServiceID = &serviceID.String
	}
	if heading.Valid {
		p.Heading = &heading.Float64
	}
	if speed.Valid {
		p.Speed = &speed.Float64
	}
	return p, nil
}
