package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/cache"
	"github.com/carlosgalves/porto-transport-api/internal/calendar"
	"github.com/carlosgalves/porto-transport-api/internal/domain"
	"github.com/carlosgalves/porto-transport-api/internal/store"
)

// GTFSHandler serves the static schedule datasets: routes, trips and
// service days, plus the dataset stats endpoint.
type GTFSHandler struct {
	store    *store.ScheduleStore
	vehicles *store.VehicleStore
	resolver *calendar.Resolver
	cache    *cache.RedisCache
	cacheTTL time.Duration
	loc      *time.Location
	logger   *slog.Logger
}

func NewGTFSHandler(st *store.ScheduleStore, vehicles *store.VehicleStore, resolver *calendar.Resolver, c *cache.RedisCache, cacheTTL time.Duration, loc *time.Location, logger *slog.Logger) *GTFSHandler {
	if loc == nil {
		loc = time.Local
	}
	return &GTFSHandler{
		store:    st,
		vehicles: vehicles,
		resolver: resolver,
		cache:    c,
		cacheTTL: cacheTTL,
		loc:      loc,
		logger:   logger.With("component", "gtfs_handler"),
	}
}

// ListRoutes handles GET /v1/routes. The route table is small and static,
// so it is served unpaginated and cached whole.
func (h *GTFSHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		var cached []domain.Route
		if hit, err := h.cache.GetJSONCompressed(ctx, cache.KeyRoutes, &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	routes, err := h.store.Routes(ctx)
	if err != nil {
		h.logger.Error("list routes failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list routes")
		return
	}
	if routes == nil {
		routes = []domain.Route{}
	}
	if h.cache != nil {
		h.cache.SetJSONCompressed(ctx, cache.KeyRoutes, routes, h.cacheTTL)
	}
	respondJSON(w, http.StatusOK, routes)
}

// GetRoute handles GET /v1/routes/{id}. The detail view expands the route's
// directions, grouped by headsign, with an optional comma-separated
// service_id filter.
func (h *GTFSHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	route, err := h.store.RouteByID(ctx, r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "route not found")
		return
	}
	if err != nil {
		h.logger.Error("get route failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get route")
		return
	}

	dirs, err := h.store.RouteDirections(ctx, route.ID)
	if err != nil {
		h.logger.Error("get route directions failed", "route_id", route.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get route")
		return
	}

	detail := domain.RouteDetail{
		Route:       route,
		ServiceDays: domain.ServiceDaysOf(dirs),
		Directions:  domain.GroupRouteDirections(dirs, splitCSV(r.URL.Query().Get("service_id"))),
	}
	respondJSON(w, http.StatusOK, detail)
}

// GetRouteShapes handles GET /v1/routes/{id}/shapes with an optional
// direction_id filter.
func (h *GTFSHandler) GetRouteShapes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	routeID := r.PathValue("id")

	if _, err := h.store.RouteByID(ctx, routeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "route not found")
			return
		}
		h.logger.Error("get route failed", "route_id", routeID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get route shapes")
		return
	}

	directionID, ok := parseDirectionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid direction_id parameter, expected 0 or 1")
		return
	}

	shapes, err := h.store.RouteShapes(ctx, routeID, directionID)
	if err != nil {
		h.logger.Error("get route shapes failed", "route_id", routeID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get route shapes")
		return
	}
	if shapes == nil {
		shapes = []domain.RouteShape{}
	}
	respondJSON(w, http.StatusOK, shapes)
}

type routeStopsResponse struct {
	RouteID    string                  `json:"route_id"`
	Directions []domain.DirectionStops `json:"directions"`
	Timestamp  time.Time               `json:"timestamp"`
}

// GetRouteStops handles GET /v1/routes/{id}/stops, returning the route's
// stop sequence grouped by direction.
func (h *GTFSHandler) GetRouteStops(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	routeID := r.PathValue("id")

	if _, err := h.store.RouteByID(ctx, routeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "route not found")
			return
		}
		h.logger.Error("get route failed", "route_id", routeID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get route stops")
		return
	}

	directionID, ok := parseDirectionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid direction_id parameter, expected 0 or 1")
		return
	}

	rows, err := h.store.RouteStops(ctx, routeID, directionID)
	if err != nil {
		h.logger.Error("get route stops failed", "route_id", routeID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get route stops")
		return
	}

	directions := domain.GroupStopsByDirection(rows)
	if directions == nil {
		directions = []domain.DirectionStops{}
	}
	respondJSON(w, http.StatusOK, routeStopsResponse{
		RouteID:    routeID,
		Directions: directions,
		Timestamp:  time.Now().UTC(),
	})
}

// GetTripShapes handles GET /v1/trips/{id}/shapes.
func (h *GTFSHandler) GetTripShapes(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	shape, err := h.store.TripShape(r.Context(), tripID)
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "trip shapes not found")
		return
	}
	if err != nil {
		h.logger.Error("get trip shapes failed", "trip_id", tripID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get trip shapes")
		return
	}
	if shape.Points == nil {
		shape.Points = []domain.ShapePoint{}
	}
	respondJSON(w, http.StatusOK, shape)
}

// GetTripStops handles GET /v1/trips/{id}/stops.
func (h *GTFSHandler) GetTripStops(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tripID := r.PathValue("id")

	if _, err := h.store.TripByID(ctx, tripID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "trip not found")
			return
		}
		h.logger.Error("get trip failed", "trip_id", tripID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get trip stops")
		return
	}

	stops, err := h.store.TripStops(ctx, tripID)
	if err != nil {
		h.logger.Error("get trip stops failed", "trip_id", tripID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get trip stops")
		return
	}
	if stops == nil {
		stops = []domain.TripStopEntry{}
	}
	respondJSON(w, http.StatusOK, stops)
}

// ListTrips handles GET /v1/trips with route_id and service_id filters.
func (h *GTFSHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid page parameter")
		return
	}
	size, ok := parseSize(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid size parameter")
		return
	}

	routeID := r.URL.Query().Get("route_id")
	serviceID := r.URL.Query().Get("service_id")

	trips, total, err := h.store.Trips(r.Context(), routeID, serviceID, page*size, size)
	if err != nil {
		h.logger.Error("list trips failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list trips")
		return
	}
	if trips == nil {
		trips = []domain.Trip{}
	}

	respondJSON(w, http.StatusOK, newPaginatedResponse(r, trips, total, page, size))
}

// GetTrip handles GET /v1/trips/{id}.
func (h *GTFSHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.store.TripByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "trip not found")
		return
	}
	if err != nil {
		h.logger.Error("get trip failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get trip")
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// ListServiceDays handles GET /v1/service-days.
func (h *GTFSHandler) ListServiceDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		var cached []domain.ServiceDay
		if hit, err := h.cache.GetJSON(ctx, cache.KeyServiceDays, &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	days, err := h.store.ServiceDays(ctx)
	if err != nil {
		h.logger.Error("list service days failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list service days")
		return
	}
	if days == nil {
		days = []domain.ServiceDay{}
	}
	if h.cache != nil {
		h.cache.SetJSON(ctx, cache.KeyServiceDays, days, h.cacheTTL)
	}
	respondJSON(w, http.StatusOK, days)
}

// GetServiceDay handles GET /v1/service-days/{id}. The id may be a service
// id like "U" or a numeric service type like "1".
func (h *GTFSHandler) GetServiceDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.store.ServiceDayByIDOrType(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "service day not found")
		return
	}
	if err != nil {
		h.logger.Error("get service day failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get service day")
		return
	}
	respondJSON(w, http.StatusOK, day)
}

// GetCurrentServiceDay handles GET /v1/service-days/current, resolving which
// service day applies on the given date (default today).
func (h *GTFSHandler) GetCurrentServiceDay(w http.ResponseWriter, r *http.Request) {
	date := time.Now().In(h.loc)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date parameter, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	serviceID, err := h.resolver.CurrentServiceID(r.Context(), date)
	if errors.Is(err, domain.ErrNoServiceDay) {
		respondError(w, http.StatusNotFound, "no service day found for the given date")
		return
	}
	if err != nil {
		h.logger.Error("resolve service day failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to resolve service day")
		return
	}

	day, err := h.store.ServiceDayByIDOrType(r.Context(), serviceID)
	if err != nil {
		h.logger.Error("get service day failed", "service_id", serviceID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get service day")
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Date       string            `json:"date"`
		ServiceDay domain.ServiceDay `json:"serviceDay"`
	}{
		Date:       date.Format("2006-01-02"),
		ServiceDay: day,
	})
}

type statsResponse struct {
	ServiceDays        int        `json:"serviceDays"`
	Routes             int        `json:"routes"`
	Trips              int        `json:"trips"`
	Stops              int        `json:"stops"`
	ScheduledArrivals  int        `json:"scheduledArrivals"`
	TrackedBuses       int        `json:"trackedBuses"`
	LastPositionUpdate *time.Time `json:"lastPositionUpdate"`
	Timestamp          time.Time  `json:"timestamp"`
}

// GetStats handles GET /v1/stats.
func (h *GTFSHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.Error("get stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	buses, err := h.vehicles.Count(ctx)
	if err != nil {
		h.logger.Error("count buses failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	resp := statsResponse{
		ServiceDays:       stats.ServiceDays,
		Routes:            stats.Routes,
		Trips:             stats.Trips,
		Stops:             stats.Stops,
		ScheduledArrivals: stats.Arrivals,
		TrackedBuses:      buses,
		Timestamp:         time.Now().UTC(),
	}
	if last, err := h.vehicles.LastUpdated(ctx); err == nil && !last.IsZero() {
		resp.LastPositionUpdate = &last
	}

	respondJSON(w, http.StatusOK, resp)
}
