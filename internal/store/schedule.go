package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// ScheduleStore is a read-only view over the static schedule tables
// (service_days, trips, scheduled_arrivals, stops, routes). The tables are
// bulk-replaced by the external GTFS import; nothing here writes.
type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func (s *ScheduleStore) ServiceDays(ctx context.Context) ([]domain.ServiceDay, error) {
	q := `SELECT service_id, service_name, service_type, day_map, start_date, end_date
	      FROM service_days`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query service_days: %w", err)
	}
	defer rows.Close()

	var days []domain.ServiceDay
	for rows.Next() {
		var sd domain.ServiceDay
		var serviceType sql.NullInt64
		var dayMapRaw string
		if err := rows.Scan(&sd.ServiceID, &sd.ServiceName, &serviceType, &dayMapRaw, &sd.StartDate, &sd.EndDate); err != nil {
			return nil, err
		}
		if serviceType.Valid {
			v := int(serviceType.Int64)
			sd.ServiceType = &v
		}
		var flags []int
		if err := json.Unmarshal([]byte(dayMapRaw), &flags); err != nil || len(flags) < 7 {
			// malformed day_map rows cannot match any date
			continue
		}
		copy(sd.DayMap[:], flags[:7])
		days = append(days, sd)
	}
	return days, rows.Err()
}

// ServiceDayByIDOrType looks up a service day by service_id, falling back to
// service_type when the identifier is numeric.
func (s *ScheduleStore) ServiceDayByIDOrType(ctx context.Context, identifier string) (domain.ServiceDay, error) {
	days, err := s.ServiceDays(ctx)
	if err != nil {
		return domain.ServiceDay{}, err
	}
	for _, sd := range days {
		if sd.ServiceID == identifier {
			return sd, nil
		}
	}
	if t, err := strconv.Atoi(identifier); err == nil {
		for _, sd := range days {
			if sd.ServiceType != nil && *sd.ServiceType == t {
				return sd, nil
			}
		}
	}
	return domain.ServiceDay{}, domain.ErrNotFound
}

func (s *ScheduleStore) StopByID(ctx context.Context, stopID string) (domain.Stop, error) {
	q := `SELECT id, name, lat, lon, zone_id FROM stops WHERE id = $1`
	var st domain.Stop
	err := s.db.QueryRowContext(ctx, q, stopID).
		Scan(&st.ID, &st.Name, &st.Coordinates.Latitude, &st.Coordinates.Longitude, &st.ZoneID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stop{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Stop{}, fmt.Errorf("query stop %s: %w", stopID, err)
	}
	return st, nil
}

// Stops returns one page of stops plus the unpaginated total. A negative
// limit returns everything.
func (s *ScheduleStore) Stops(ctx context.Context, zoneID string, offset, limit int) ([]domain.Stop, int, error) {
	where := ""
	args := []any{}
	if zoneID != "" {
		where = " WHERE zone_id = $1"
		args = append(args, zoneID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stops"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stops: %w", err)
	}

	q := "SELECT id, name, lat, lon, zone_id FROM stops" + where + " ORDER BY id"
	if limit >= 0 {
		q += fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
		args = append(args, offset, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	var stops []domain.Stop
	for rows.Next() {
		var st domain.Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.Coordinates.Latitude, &st.Coordinates.Longitude, &st.ZoneID); err != nil {
			return nil, 0, err
		}
		stops = append(stops, st)
	}
	return stops, total, rows.Err()
}

func (s *ScheduleStore) Routes(ctx context.Context) ([]domain.Route, error) {
	q := `SELECT id, short_name, long_name, type, route_color, route_text_color
	      FROM routes ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		var r domain.Route
		if err := rows.Scan(&r.ID, &r.ShortName, &r.LongName, &r.Type, &r.Color, &r.TextColor); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (s *ScheduleStore) RouteByID(ctx context.Context, routeID string) (domain.Route, error) {
	q := `SELECT id, short_name, long_name, type, route_color, route_text_color
	      FROM routes WHERE id = $1`
	var r domain.Route
	err := s.db.QueryRowContext(ctx, q, routeID).
		Scan(&r.ID, &r.ShortName, &r.LongName, &r.Type, &r.Color, &r.TextColor)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Route{}, fmt.Errorf("query route %s: %w", routeID, err)
	}
	return r, nil
}

func (s *ScheduleStore) TripByID(ctx context.Context, tripID string) (domain.Trip, error) {
	q := `SELECT trip_id, route_id, direction_id, service_id, trip_number, headsign, wheelchair_accessible
	      FROM trips WHERE trip_id = $1`
	var t domain.Trip
	err := s.db.QueryRowContext(ctx, q, tripID).
		Scan(&t.TripID, &t.RouteID, &t.DirectionID, &t.ServiceID, &t.TripNumber, &t.Headsign, &t.WheelchairAccessible)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trip{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("query trip %s: %w", tripID, err)
	}
	return t, nil
}

func (s *ScheduleStore) Trips(ctx context.Context, routeID, serviceID string, offset, limit int) ([]domain.Trip, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if routeID != "" {
		args = append(args, routeID)
		where += fmt.Sprintf(" AND route_id = $%d", len(args))
	}
	if serviceID != "" {
		args = append(args, serviceID)
		where += fmt.Sprintf(" AND service_id = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trips"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trips: %w", err)
	}

	args = append(args, offset, limit)
	q := fmt.Sprintf(`SELECT trip_id, route_id, direction_id, service_id, trip_number, headsign, wheelchair_accessible
	      FROM trips%s ORDER BY trip_id OFFSET $%d LIMIT $%d`, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.TripID, &t.RouteID, &t.DirectionID, &t.ServiceID, &t.TripNumber, &t.Headsign, &t.WheelchairAccessible); err != nil {
			return nil, 0, err
		}
		trips = append(trips, t)
	}
	return trips, total, rows.Err()
}

const arrivalSelect = `SELECT sa.trip_id, sa.stop_id, sa.stop_sequence,
	       sa.arrival_time::text, sa.departure_time::text,
	       t.route_id, t.direction_id, t.service_id, t.trip_number, t.headsign
	FROM scheduled_arrivals sa
	JOIN trips t ON t.trip_id = sa.trip_id`

func scanArrival(rows *sql.Rows) (domain.StopArrival, error) {
	var a domain.StopArrival
	var seq int
	var arrivalRaw, departureRaw string
	if err := rows.Scan(&a.Trip.ID, &a.Stop.ID, &seq, &arrivalRaw, &departureRaw,
		&a.Trip.RouteID, &a.Trip.DirectionID, &a.Trip.ServiceID, &a.Trip.Number, &a.Trip.Headsign); err != nil {
		return domain.StopArrival{}, err
	}
	a.Stop.Sequence = &seq
	var err error
	if a.ArrivalTime, err = domain.ParseTimeOfDay(arrivalRaw); err != nil {
		return domain.StopArrival{}, fmt.Errorf("arrival_time for trip %s: %w", a.Trip.ID, err)
	}
	if a.DepartureTime, err = domain.ParseTimeOfDay(departureRaw); err != nil {
		return domain.StopArrival{}, fmt.Errorf("departure_time for trip %s: %w", a.Trip.ID, err)
	}
	return a, nil
}

// ArrivalsForStop returns every scheduled arrival at a stop whose trip runs
// on one of the given service days, unpaginated. Used by the windowed merge,
// which expands and pages the rows in memory.
func (s *ScheduleStore) ArrivalsForStop(ctx context.Context, stopID, routeID string, serviceIDs []string) ([]domain.StopArrival, error) {
	q := arrivalSelect + ` WHERE sa.stop_id = $1 AND t.service_id = ANY($2)`
	args := []any{stopID, serviceIDs}
	if routeID != "" {
		q += ` AND t.route_id = $3`
		args = append(args, routeID)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query scheduled_arrivals: %w", err)
	}
	defer rows.Close()

	var arrivals []domain.StopArrival
	for rows.Next() {
		a, err := scanArrival(rows)
		if err != nil {
			return nil, err
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, rows.Err()
}

// ArrivalPage returns one schedule-time-ordered page of arrivals for the
// non-windowed mode, paginated by database offset/limit.
func (s *ScheduleStore) ArrivalPage(ctx context.Context, stopID, routeID, serviceID string, offset, limit int) ([]domain.StopArrival, int, error) {
	where := ` WHERE sa.stop_id = $1`
	args := []any{stopID}
	if routeID != "" {
		args = append(args, routeID)
		where += fmt.Sprintf(" AND t.route_id = $%d", len(args))
	}
	if serviceID != "" {
		args = append(args, serviceID)
		where += fmt.Sprintf(" AND t.service_id = $%d", len(args))
	}

	countQ := `SELECT COUNT(*) FROM scheduled_arrivals sa JOIN trips t ON t.trip_id = sa.trip_id` + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scheduled_arrivals: %w", err)
	}

	args = append(args, offset, limit)
	q := fmt.Sprintf("%s%s ORDER BY sa.arrival_time OFFSET $%d LIMIT $%d", arrivalSelect, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query scheduled_arrivals: %w", err)
	}
	defer rows.Close()

	var arrivals []domain.StopArrival
	for rows.Next() {
		a, err := scanArrival(rows)
		if err != nil {
			return nil, 0, err
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, total, rows.Err()
}

// MatchCandidates returns the arrivals a live estimate can be reconciled
// against: same stop, route, direction and service day.
func (s *ScheduleStore) MatchCandidates(ctx context.Context, stopID, routeID string, directionID int, serviceID string) ([]domain.StopArrival, error) {
	q := arrivalSelect + ` WHERE sa.stop_id = $1 AND t.route_id = $2 AND t.direction_id = $3 AND t.service_id = $4`
	rows, err := s.db.QueryContext(ctx, q, stopID, routeID, directionID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("query match candidates: %w", err)
	}
	defer rows.Close()

	var arrivals []domain.StopArrival
	for rows.Next() {
		a, err := scanArrival(rows)
		if err != nil {
			return nil, err
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, rows.Err()
}

type Stats struct {
	Stops       int `json:"stops"`
	Routes      int `json:"routes"`
	Trips       int `json:"trips"`
	ServiceDays int `json:"service_days"`
	Arrivals    int `json:"scheduled_arrivals"`
}

func (s *ScheduleStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"stops", &st.Stops},
		{"routes", &st.Routes},
		{"trips", &st.Trips},
		{"service_days", &st.ServiceDays},
		{"scheduled_arrivals", &st.Arrivals},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return st, nil
}
