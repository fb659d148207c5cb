package domain

import "time"

// RealtimeEstimate is one upstream live arrival prediction for a stop, after
// the opaque feed trip_id has been decomposed. The feed never carries a trip
// number or stop sequence; those are recovered by reconciliation against the
// static schedule. Transient, never persisted.
type RealtimeEstimate struct {
	VehicleID      string
	StopID         string
	RouteID        string
	DirectionID    int
	ServiceID      string
	TripHeadsign   string
	ArrivalTime    *TimeOfDay
	ArrivalMinutes *float64
	DelayMinutes   *float64
	Status         string
	LastUpdated    time.Time
}

// RealtimeArrival is the reconciled view returned to callers: the live
// estimate plus whatever trip identity could be recovered.
type RealtimeArrival struct {
	VehicleID            string     `json:"vehicle_id"`
	Trip                 TripRef    `json:"trip"`
	Stop                 StopRef    `json:"stop"`
	RealtimeArrivalTime  *TimeOfDay `json:"realtime_arrival_time"`
	ScheduledArrivalTime *TimeOfDay `json:"scheduled_arrival_time"`
	ArrivalMinutes       *float64   `json:"arrival_minutes"`
	DelayMinutes         *float64   `json:"delay_minutes"`
	Status               string     `json:"status,omitempty"`
	LastUpdated          time.Time  `json:"last_updated"`
}
