package stcp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// TripIdentity is the trip identity recovered from the feed's opaque trip_id.
type TripIdentity struct {
	RouteID     string
	DirectionID int
	ServiceID   string
}

// ParseTripID decomposes the feed's composite trip identifier, e.g.
// "600_0_2|194|D1|T13|N6":
//
//   - first pipe part "600_0_2": route "600"; the third underscore field is
//     the direction code, "1" meaning direction 0 and "2" direction 1; any
//     other code fails this record.
//   - the first later part of the form "D<n>" carries the service type,
//     mapped through the fixed code table (1=U, 2=S, 3=D).
//
// The feed does not carry a trip number; that is recovered separately by
// schedule reconciliation.
func ParseTripID(tripID string) (TripIdentity, error) {
	parts := strings.Split(tripID, "|")
	fields := strings.Split(parts[0], "_")
	if len(fields) < 3 {
		return TripIdentity{}, fmt.Errorf("invalid trip_id format: %q", tripID)
	}

	var direction int
	switch fields[2] {
	case "1":
		direction = 0
	case "2":
		direction = 1
	default:
		return TripIdentity{}, fmt.Errorf("invalid direction code %q in trip_id %q", fields[2], tripID)
	}

	serviceID := ""
	for _, part := range parts[1:] {
		if !strings.HasPrefix(part, "D") || len(part) < 2 {
			continue
		}
		serviceType, err := strconv.Atoi(part[1:])
		if err != nil {
			continue
		}
		if code, ok := domain.ServiceCodeForType(serviceType); ok {
			serviceID = code
			break
		}
	}
	if serviceID == "" {
		return TripIdentity{}, fmt.Errorf("no service code in trip_id %q", tripID)
	}

	return TripIdentity{RouteID: fields[0], DirectionID: direction, ServiceID: serviceID}, nil
}

func parseArrival(a apiArrival, stopID string, lastUpdated time.Time) (domain.RealtimeEstimate, error) {
	if a.TripID == "" {
		return domain.RealtimeEstimate{}, fmt.Errorf("missing trip_id")
	}
	identity, err := ParseTripID(a.TripID)
	if err != nil {
		return domain.RealtimeEstimate{}, err
	}

	var arrivalTime *domain.TimeOfDay
	if a.EstimatedArrivalTime != "" {
		if at, err := time.Parse(time.RFC3339, a.EstimatedArrivalTime); err == nil {
			t := domain.TimeOfDayFrom(at)
			arrivalTime = &t
		}
	}

	return domain.RealtimeEstimate{
		VehicleID:      a.VehicleID,
		StopID:         stopID,
		RouteID:        identity.RouteID,
		DirectionID:    identity.DirectionID,
		ServiceID:      identity.ServiceID,
		TripHeadsign:   a.TripHeadsign,
		ArrivalTime:    arrivalTime,
		ArrivalMinutes: a.ArrivalMinutes,
		DelayMinutes:   a.DelayMinutes,
		Status:         a.Status,
		LastUpdated:    lastUpdated,
	}, nil
}
