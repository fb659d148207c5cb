package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoServiceDay is returned when no service day's weekday map covers
	// the requested date.
	ErrNoServiceDay = errors.New("no service day for date")
)

// serviceCodeByType maps the numeric service type carried by the realtime
// feeds ("D1", "D2", "D3" tokens) to the normalized service day code.
// Process-wide constant data.
var serviceCodeByType = map[int]string{
	1: "U", // weekdays (UTEIS)
	2: "S", // Saturday (SAB)
	3: "D", // Sunday (DOM)
}

// ServiceCodeForType resolves a feed service type number to a service_id.
func ServiceCodeForType(serviceType int) (string, bool) {
	code, ok := serviceCodeByType[serviceType]
	return code, ok
}

// DayMap holds one flag per weekday, Monday first (Mon=0 .. Sun=6).
type DayMap [7]int

// On reports whether the weekday with the given Monday-based index is flagged.
func (m DayMap) On(weekday int) bool {
	if weekday < 0 || weekday > 6 {
		return false
	}
	return m[weekday] == 1
}

// MondayWeekday converts a time.Time weekday to the Monday=0..Sunday=6
// convention used by DayMap.
func MondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ServiceDay is a named static-schedule variant (weekday/Saturday/Sunday)
// selecting which trips run. Loaded wholesale by the static import; immutable
// at runtime.
type ServiceDay struct {
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	ServiceType *int      `json:"service_type"`
	DayMap      DayMap    `json:"day_map"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// Trip is one scheduled vehicle run. TripID is the composite
// routeID_directionID_serviceID_tripNumber produced by the static import.
type Trip struct {
	TripID               string `json:"trip_id"`
	RouteID              string `json:"route_id"`
	DirectionID          int    `json:"direction_id"`
	ServiceID            string `json:"service_id"`
	TripNumber           string `json:"trip_number"`
	Headsign             string `json:"headsign"`
	WheelchairAccessible bool   `json:"wheelchair_accessible"`
}

type Route struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	Type      int    `json:"type"`
	Color     string `json:"route_color"`
	TextColor string `json:"route_text_color"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Stop struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	ZoneID      string      `json:"zone_id"`
}

// TripRef is the trip identity attached to an arrival.
type TripRef struct {
	ID          string `json:"id"`
	RouteID     string `json:"route_id"`
	DirectionID int    `json:"direction_id"`
	ServiceID   string `json:"service_id"`
	Number      string `json:"number"`
	Headsign    string `json:"headsign,omitempty"`
}

// StopRef locates an arrival within a trip's stop sequence.
type StopRef struct {
	ID       string `json:"id"`
	Sequence *int   `json:"sequence"`
}

// StopArrival is one scheduled arrival at a stop, joined with its trip.
type StopArrival struct {
	Trip          TripRef   `json:"trip"`
	Stop          StopRef   `json:"stop"`
	ArrivalTime   TimeOfDay `json:"arrival_time"`
	DepartureTime TimeOfDay `json:"departure_time"`
}
