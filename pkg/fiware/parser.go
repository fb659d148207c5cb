package fiware

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// Annotation prefixes carrying STCP identifiers inside the free-text
// annotation list. Fixed upstream contract.
const (
	routeAnnotationPrefix     = "stcp:route:"
	directionAnnotationPrefix = "stcp:sentido:"
	tripAnnotationPrefix      = "stcp:nr_viagem:"
)

type stringAttr struct {
	Value string `json:"value"`
}

type floatAttr struct {
	Value *float64 `json:"value"`
}

type annotationsAttr struct {
	Value []string `json:"value"`
}

type locationAttr struct {
	Value struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"value"`
}

type vehicleEntity struct {
	ID                  string          `json:"id"`
	FleetVehicleID      stringAttr      `json:"fleetVehicleId"`
	Annotations         annotationsAttr `json:"annotations"`
	Location            locationAttr    `json:"location"`
	Heading             floatAttr       `json:"heading"`
	Speed               floatAttr       `json:"speed"`
	ObservationDateTime stringAttr      `json:"observationDateTime"`
}

// annotationValue returns the text after the first annotation matching the
// prefix, or "" when absent.
func annotationValue(annotations []string, prefix string) string {
	for _, a := range annotations {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}

// ParseVehicle normalizes one broker entity. ingestedAt is used when the
// upstream observation timestamp is missing or unparsable. Entities without
// a stable vehicle identifier or usable coordinates fail individually.
func ParseVehicle(e vehicleEntity, ingestedAt time.Time) (domain.VehiclePosition, error) {
	vehicleID := e.FleetVehicleID.Value
	if vehicleID == "" {
		return domain.VehiclePosition{}, fmt.Errorf("missing fleetVehicleId")
	}

	coords := e.Location.Value.Coordinates
	if len(coords) < 2 {
		return domain.VehiclePosition{}, fmt.Errorf("missing coordinates")
	}

	p := domain.VehiclePosition{
		VehicleID: vehicleID,
		// GeoJSON order: longitude first
		Lon:         coords[0],
		Lat:         coords[1],
		Heading:     e.Heading.Value,
		Speed:       e.Speed.Value,
		LastUpdated: ingestedAt,
	}

	if route := annotationValue(e.Annotations.Value, routeAnnotationPrefix); route != "" {
		p.RouteID = &route
	}
	if dir := annotationValue(e.Annotations.Value, directionAnnotationPrefix); dir != "" {
		if d, err := strconv.Atoi(dir); err == nil {
			p.DirectionID = &d
		}
	}
	if service := serviceFromTripAnnotation(annotationValue(e.Annotations.Value, tripAnnotationPrefix)); service != "" {
		p.ServiceID = &service
	}

	if obs := e.ObservationDateTime.Value; obs != "" {
		if t, err := time.Parse(time.RFC3339, obs); err == nil {
			p.LastUpdated = t
		}
	}

	return p, nil
}

// serviceFromTripAnnotation extracts the service day code from the trip
// annotation ("600_0_2|194|D1|..."): the first "D<n>" part decides, mapped
// through the fixed code table. Unlike the arrival feed parser, scanning
// stops at the first D token whether or not it maps.
func serviceFromTripAnnotation(nrViagem string) string {
	if nrViagem == "" {
		return ""
	}
	for _, part := range strings.Split(nrViagem, "|") {
		if !strings.HasPrefix(part, "D") || len(part) < 2 {
			continue
		}
		if serviceType, err := strconv.Atoi(part[1:]); err == nil {
			if code, ok := domain.ServiceCodeForType(serviceType); ok {
				return code
			}
		}
		break
	}
	return ""
}
