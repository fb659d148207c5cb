package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRouteShapes(t *testing.T) {
	refs := []RouteShapeRef{
		{RouteID: "600", DirectionID: 1, ShapeID: "SH_B"},
		{RouteID: "600", DirectionID: 0, ShapeID: "SH_A"},
		{RouteID: "600", DirectionID: 0, ShapeID: "SH_MISSING"},
	}
	points := map[string][]ShapePoint{
		"SH_A": {
			{Sequence: 1, Coordinates: Coordinates{Latitude: 41.15, Longitude: -8.61}},
			{Sequence: 2, Coordinates: Coordinates{Latitude: 41.16, Longitude: -8.62}},
		},
		"SH_B": {
			{Sequence: 1, Coordinates: Coordinates{Latitude: 41.17, Longitude: -8.63}},
		},
	}

	shapes := BuildRouteShapes(refs, points)

	assert.Len(t, shapes, 2, "reference without points must be dropped")
	assert.Equal(t, "SH_A", shapes[0].ShapeID)
	assert.Equal(t, 0, shapes[0].DirectionID)
	assert.Len(t, shapes[0].Points, 2)
	assert.Equal(t, "SH_B", shapes[1].ShapeID)
	assert.Equal(t, 1, shapes[1].DirectionID)
}

func TestBuildRouteShapesEmpty(t *testing.T) {
	assert.Empty(t, BuildRouteShapes(nil, nil))
}

func TestGroupStopsByDirection(t *testing.T) {
	rows := []RouteStopRow{
		{DirectionID: 1, Stop: StopSummary{ID: "S3", Name: "Aliados"}, Sequence: 1},
		{DirectionID: 0, Stop: StopSummary{ID: "S2", Name: "Bolhão"}, Sequence: 2},
		{DirectionID: 0, Stop: StopSummary{ID: "S1", Name: "Trindade"}, Sequence: 1},
	}

	groups := GroupStopsByDirection(rows)

	assert.Len(t, groups, 2)
	assert.Equal(t, 0, groups[0].DirectionID)
	assert.Equal(t, "S1", groups[0].Stops[0].Stop.ID, "stops must be ordered by sequence")
	assert.Equal(t, "S2", groups[0].Stops[1].Stop.ID)
	assert.Equal(t, 1, groups[1].DirectionID)
	assert.Equal(t, "S3", groups[1].Stops[0].Stop.ID)
}

func TestGroupRouteDirections(t *testing.T) {
	dirs := []RouteDirection{
		{RouteID: "600", DirectionID: 0, ServiceID: "U", Headsign: "Maia"},
		{RouteID: "600", DirectionID: 0, ServiceID: "S", Headsign: "Maia"},
		{RouteID: "600", DirectionID: 0, ServiceID: "U", Headsign: "Maia"},
		{RouteID: "600", DirectionID: 1, ServiceID: "U", Headsign: "Aliados"},
	}

	items := GroupRouteDirections(dirs, nil)

	assert.Len(t, items, 2)
	assert.Equal(t, "Aliados", items[0].Headsign, "groups ordered by headsign")
	assert.Equal(t, []string{"U"}, items[0].ServiceDays)
	assert.Equal(t, "Maia", items[1].Headsign)
	assert.Equal(t, []string{"S", "U"}, items[1].ServiceDays, "service days sorted and de-duplicated")
}

func TestGroupRouteDirectionsServiceFilter(t *testing.T) {
	dirs := []RouteDirection{
		{RouteID: "600", DirectionID: 0, ServiceID: "U", Headsign: "Maia"},
		{RouteID: "600", DirectionID: 0, ServiceID: "S", Headsign: "Maia"},
		{RouteID: "600", DirectionID: 1, ServiceID: "D", Headsign: "Aliados"},
	}

	items := GroupRouteDirections(dirs, []string{"S"})

	assert.Len(t, items, 1)
	assert.Equal(t, "Maia", items[0].Headsign)
	assert.Equal(t, []string{"S"}, items[0].ServiceDays)
}

func TestServiceDaysOf(t *testing.T) {
	dirs := []RouteDirection{
		{ServiceID: "U"},
		{ServiceID: "S"},
		{ServiceID: "U"},
		{ServiceID: "D"},
	}
	assert.Equal(t, []string{"D", "S", "U"}, ServiceDaysOf(dirs))
	assert.Empty(t, ServiceDaysOf(nil))
}
