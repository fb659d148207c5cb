package domain

import "sort"

// StopSummary is the reduced stop view embedded in sequence listings.
type StopSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	ZoneID string `json:"zone_id"`
}

// ShapePoint is one vertex of a route geometry polyline.
type ShapePoint struct {
	Sequence    int         `json:"sequence"`
	Coordinates Coordinates `json:"coordinates"`
}

// RouteShapeRef links one direction of a route to a shape id.
type RouteShapeRef struct {
	RouteID     string
	DirectionID int
	ShapeID     string
}

// RouteShape is a drawable polyline for one direction of a route.
type RouteShape struct {
	ShapeID     string       `json:"shape_id"`
	DirectionID int          `json:"direction_id"`
	Points      []ShapePoint `json:"points"`
}

// TripShape is the polyline a single trip follows.
type TripShape struct {
	TripID  string       `json:"trip_id"`
	ShapeID string       `json:"shape_id"`
	Points  []ShapePoint `json:"points"`
}

// RouteDirection is one (direction, service, headsign) row of a route.
type RouteDirection struct {
	RouteID     string `json:"route_id"`
	DirectionID int    `json:"direction_id"`
	ServiceID   string `json:"service_id"`
	Headsign    string `json:"headsign"`
}

// RouteDirectionItem groups the service days a route runs under one
// headsign and direction.
type RouteDirectionItem struct {
	Headsign    string   `json:"headsign"`
	DirectionID int      `json:"direction_id"`
	ServiceDays []string `json:"service_days"`
}

// RouteDetail is the route view with its directions expanded.
type RouteDetail struct {
	Route
	ServiceDays []string             `json:"service_days"`
	Directions  []RouteDirectionItem `json:"directions"`
}

// RouteStopRow is one stop of a route sequence before direction grouping.
type RouteStopRow struct {
	DirectionID int
	Stop        StopSummary
	Sequence    int
}

// RouteStopEntry is one stop within a direction's ordered sequence.
type RouteStopEntry struct {
	Stop     StopSummary `json:"stop"`
	Sequence int         `json:"sequence"`
}

// DirectionStops is the ordered stop sequence of one route direction.
type DirectionStops struct {
	DirectionID int              `json:"direction_id"`
	Stops       []RouteStopEntry `json:"stops"`
}

// TripStopEntry is one scheduled stop of a trip, in visiting order.
type TripStopEntry struct {
	TripID   string      `json:"trip_id"`
	Stop     StopSummary `json:"stop"`
	Sequence int         `json:"sequence"`
}

// BuildRouteShapes joins shape references with their resolved point lists.
// References whose shape has no points are dropped. Output is ordered by
// direction id, then shape id.
func BuildRouteShapes(refs []RouteShapeRef, points map[string][]ShapePoint) []RouteShape {
	shapes := make([]RouteShape, 0, len(refs))
	for _, ref := range refs {
		pts, ok := points[ref.ShapeID]
		if !ok || len(pts) == 0 {
			continue
		}
		shapes = append(shapes, RouteShape{
			ShapeID:     ref.ShapeID,
			DirectionID: ref.DirectionID,
			Points:      pts,
		})
	}
	sort.Slice(shapes, func(i, j int) bool {
		if shapes[i].DirectionID != shapes[j].DirectionID {
			return shapes[i].DirectionID < shapes[j].DirectionID
		}
		return shapes[i].ShapeID < shapes[j].ShapeID
	})
	return shapes
}

// GroupStopsByDirection folds flat route-stop rows into per-direction
// sequences, directions ascending, stops ordered by sequence.
func GroupStopsByDirection(rows []RouteStopRow) []DirectionStops {
	byDirection := make(map[int][]RouteStopEntry)
	for _, row := range rows {
		byDirection[row.DirectionID] = append(byDirection[row.DirectionID], RouteStopEntry{
			Stop:     row.Stop,
			Sequence: row.Sequence,
		})
	}

	directions := make([]DirectionStops, 0, len(byDirection))
	for directionID, stops := range byDirection {
		sort.Slice(stops, func(i, j int) bool { return stops[i].Sequence < stops[j].Sequence })
		directions = append(directions, DirectionStops{DirectionID: directionID, Stops: stops})
	}
	sort.Slice(directions, func(i, j int) bool { return directions[i].DirectionID < directions[j].DirectionID })
	return directions
}

// GroupRouteDirections collapses per-service direction rows into headsign
// groups. A non-empty serviceIDs filter keeps only the named services.
// Groups are ordered by headsign, then direction id; each group's service
// days are sorted and de-duplicated.
func GroupRouteDirections(dirs []RouteDirection, serviceIDs []string) []RouteDirectionItem {
	wanted := make(map[string]bool, len(serviceIDs))
	for _, id := range serviceIDs {
		wanted[id] = true
	}

	type key struct {
		headsign    string
		directionID int
	}
	days := make(map[key]map[string]bool)
	for _, d := range dirs {
		if len(wanted) > 0 && !wanted[d.ServiceID] {
			continue
		}
		k := key{headsign: d.Headsign, directionID: d.DirectionID}
		if days[k] == nil {
			days[k] = make(map[string]bool)
		}
		days[k][d.ServiceID] = true
	}

	items := make([]RouteDirectionItem, 0, len(days))
	for k, set := range days {
		item := RouteDirectionItem{Headsign: k.headsign, DirectionID: k.directionID}
		for id := range set {
			item.ServiceDays = append(item.ServiceDays, id)
		}
		sort.Strings(item.ServiceDays)
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Headsign != items[j].Headsign {
			return items[i].Headsign < items[j].Headsign
		}
		return items[i].DirectionID < items[j].DirectionID
	})
	return items
}

// ServiceDaysOf returns the distinct service ids across all of a route's
// directions, sorted.
func ServiceDaysOf(dirs []RouteDirection) []string {
	seen := make(map[string]bool, len(dirs))
	ids := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if seen[d.ServiceID] {
			continue
		}
		seen[d.ServiceID] = true
		ids = append(ids, d.ServiceID)
	}
	sort.Strings(ids)
	return ids
}
