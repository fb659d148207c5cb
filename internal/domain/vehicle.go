package domain

import "time"

// VehiclePosition is the current-state snapshot of one vehicle, keyed by
// VehicleID. The position store holds exactly one row per vehicle; the poller
// overwrites it in place on every cycle.
type VehiclePosition struct {
	VehicleID   string    `json:"vehicle_id"`
	RouteID     *string   `json:"route_id"`
	DirectionID *int      `json:"direction_id"`
	ServiceID   *string   `json:"service_id"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Heading     *float64  `json:"heading"`
	Speed       *float64  `json:"speed"`
	LastUpdated time.Time `json:"last_updated"`
}