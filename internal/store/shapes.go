package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// Geometry and sequence tables (shapes, route_shapes, trip_shapes,
// route_stops, route_directions) are bulk-loaded by the external GTFS
// import alongside the core schedule tables.

// RouteShapes returns the polylines of a route, optionally filtered to one
// direction.
func (s *ScheduleStore) RouteShapes(ctx context.Context, routeID string, directionID *int) ([]domain.RouteShape, error) {
	q := `SELECT route_id, direction_id, shape_id FROM route_shapes WHERE route_id = $1`
	args := []any{routeID}
	if directionID != nil {
		q += ` AND direction_id = $2`
		args = append(args, *directionID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query route_shapes: %w", err)
	}
	defer rows.Close()

	var refs []domain.RouteShapeRef
	for rows.Next() {
		var ref domain.RouteShapeRef
		if err := rows.Scan(&ref.RouteID, &ref.DirectionID, &ref.ShapeID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(refs))
	shapeIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !seen[ref.ShapeID] {
			seen[ref.ShapeID] = true
			shapeIDs = append(shapeIDs, ref.ShapeID)
		}
	}

	points, err := s.shapePoints(ctx, shapeIDs)
	if err != nil {
		return nil, err
	}
	return domain.BuildRouteShapes(refs, points), nil
}

// TripShape returns the polyline a trip follows, or ErrNotFound when the
// trip has no shape assignment.
func (s *ScheduleStore) TripShape(ctx context.Context, tripID string) (domain.TripShape, error) {
	var shapeID string
	err := s.db.QueryRowContext(ctx, `SELECT shape_id FROM trip_shapes WHERE trip_id = $1`, tripID).Scan(&shapeID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TripShape{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TripShape{}, fmt.Errorf("query trip_shapes %s: %w", tripID, err)
	}

	points, err := s.shapePoints(ctx, []string{shapeID})
	if err != nil {
		return domain.TripShape{}, err
	}
	return domain.TripShape{TripID: tripID, ShapeID: shapeID, Points: points[shapeID]}, nil
}

func (s *ScheduleStore) shapePoints(ctx context.Context, shapeIDs []string) (map[string][]domain.ShapePoint, error) {
	q := `SELECT id, sequence, lat, lon FROM shapes WHERE id = ANY($1) ORDER BY id, sequence`
	rows, err := s.db.QueryContext(ctx, q, shapeIDs)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()

	points := make(map[string][]domain.ShapePoint, len(shapeIDs))
	for rows.Next() {
		var shapeID string
		var pt domain.ShapePoint
		if err := rows.Scan(&shapeID, &pt.Sequence, &pt.Coordinates.Latitude, &pt.Coordinates.Longitude); err != nil {
			return nil, err
		}
		points[shapeID] = append(points[shapeID], pt)
	}
	return points, rows.Err()
}

// RouteStops returns the flat stop sequence of a route across directions,
// ordered by direction then stop sequence. When the curated route_stops
// table has no rows for the route, the sequence is derived from the
// scheduled arrivals instead, taking the smallest stop_sequence observed
// per (direction, stop).
func (s *ScheduleStore) RouteStops(ctx context.Context, routeID string, directionID *int) ([]domain.RouteStopRow, error) {
	q := `SELECT rs.direction_id, st.id, st.name, st.zone_id, rs.stop_sequence
	      FROM route_stops rs
	      JOIN stops st ON st.id = rs.stop_id
	      WHERE rs.route_id = $1`
	args := []any{routeID}
	if directionID != nil {
		q += ` AND rs.direction_id = $2`
		args = append(args, *directionID)
	}
	q += ` ORDER BY rs.direction_id, rs.stop_sequence`

	stops, err := s.queryRouteStops(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query route_stops: %w", err)
	}
	if len(stops) > 0 {
		return stops, nil
	}

	q = `SELECT t.direction_id, st.id, st.name, st.zone_id, MIN(sa.stop_sequence) AS seq
	     FROM scheduled_arrivals sa
	     JOIN trips t ON t.trip_id = sa.trip_id
	     JOIN stops st ON st.id = sa.stop_id
	     WHERE t.route_id = $1`
	args = []any{routeID}
	if directionID != nil {
		q += ` AND t.direction_id = $2`
		args = append(args, *directionID)
	}
	q += ` GROUP BY t.direction_id, st.id, st.name, st.zone_id
	       ORDER BY t.direction_id, seq`

	stops, err = s.queryRouteStops(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("derive route stops from arrivals: %w", err)
	}
	return stops, nil
}

func (s *ScheduleStore) queryRouteStops(ctx context.Context, q string, args ...any) ([]domain.RouteStopRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.RouteStopRow
	for rows.Next() {
		var row domain.RouteStopRow
		if err := rows.Scan(&row.DirectionID, &row.Stop.ID, &row.Stop.Name, &row.Stop.ZoneID, &row.Sequence); err != nil {
			return nil, err
		}
		stops = append(stops, row)
	}
	return stops, rows.Err()
}

// TripStops returns a trip's scheduled stops in visiting order.
func (s *ScheduleStore) TripStops(ctx context.Context, tripID string) ([]domain.TripStopEntry, error) {
	q := `SELECT sa.trip_id, st.id, st.name, st.zone_id, sa.stop_sequence
	      FROM scheduled_arrivals sa
	      JOIN stops st ON st.id = sa.stop_id
	      WHERE sa.trip_id = $1
	      ORDER BY sa.stop_sequence`
	rows, err := s.db.QueryContext(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("query trip stops %s: %w", tripID, err)
	}
	defer rows.Close()

	var stops []domain.TripStopEntry
	for rows.Next() {
		var entry domain.TripStopEntry
		if err := rows.Scan(&entry.TripID, &entry.Stop.ID, &entry.Stop.Name, &entry.Stop.ZoneID, &entry.Sequence); err != nil {
			return nil, err
		}
		stops = append(stops, entry)
	}
	return stops, rows.Err()
}

// RouteDirections returns the raw (direction, service, headsign) rows of a
// route.
func (s *ScheduleStore) RouteDirections(ctx context.Context, routeID string) ([]domain.RouteDirection, error) {
	q := `SELECT route_id, direction_id, service_id, headsign
	      FROM route_directions
	      WHERE route_id = $1`
	rows, err := s.db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, fmt.Errorf("query route_directions: %w", err)
	}
	defer rows.Close()

	var dirs []domain.RouteDirection
	for rows.Next() {
		var d domain.RouteDirection
		if err := rows.Scan(&d.RouteID, &d.DirectionID, &d.ServiceID, &d.Headsign); err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}
	return dirs, rows.Err()
}
