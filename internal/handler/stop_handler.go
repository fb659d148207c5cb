package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/cache"
	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// arrivalWindow is how far ahead the windowed scheduled view looks.
const arrivalWindow = 24 * time.Hour

// StopReader is the slice of the schedule store the stop endpoints read.
type StopReader interface {
	StopByID(ctx context.Context, stopID string) (domain.Stop, error)
	Stops(ctx context.Context, zoneID string, offset, limit int) ([]domain.Stop, int, error)
}

// ArrivalMerger serves the two scheduled-arrival query modes.
type ArrivalMerger interface {
	ListWindowed(ctx context.Context, stopID, routeID, serviceID string, windowStart, windowEnd time.Time, page, size int) ([]domain.StopArrival, int, error)
	ListAll(ctx context.Context, stopID, routeID, serviceID string, page, size int) ([]domain.StopArrival, int, error)
}

// ArrivalReconciler recovers trip identity for live arrival estimates.
type ArrivalReconciler interface {
	ReconcileAll(ctx context.Context, estimates []domain.RealtimeEstimate) ([]domain.RealtimeArrival, error)
}

// RealtimeFeed pulls the live arrival board for one stop.
type RealtimeFeed interface {
	FetchStopRealtime(ctx context.Context, stopID string) ([]domain.RealtimeEstimate, error)
}

// StopHandler serves the stop endpoints: the stop list, single stops, and
// the scheduled and realtime arrival boards.
type StopHandler struct {
	store    StopReader
	merger   ArrivalMerger
	matcher  ArrivalReconciler
	realtime RealtimeFeed
	cache    *cache.RedisCache
	cacheTTL time.Duration
	loc      *time.Location
	logger   *slog.Logger
}

func NewStopHandler(st StopReader, merger ArrivalMerger, matcher ArrivalReconciler, realtime RealtimeFeed, c *cache.RedisCache, cacheTTL time.Duration, loc *time.Location, logger *slog.Logger) *StopHandler {
	if loc == nil {
		loc = time.Local
	}
	return &StopHandler{
		store:    st,
		merger:   merger,
		matcher:  matcher,
		realtime: realtime,
		cache:    c,
		cacheTTL: cacheTTL,
		loc:      loc,
		logger:   logger.With("component", "stop_handler"),
	}
}

// ListStops handles GET /v1/stops. Without a size parameter the full stop
// list is returned in one page; zone_id narrows by fare zone.
func (h *StopHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid page parameter")
		return
	}
	size, ok := parseOptionalSize(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid size parameter")
		return
	}

	zoneID := r.URL.Query().Get("zone_id")

	if size == nil {
		stops, total, err := h.allStops(r.Context(), zoneID)
		if err != nil {
			h.logger.Error("list stops failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to list stops")
			return
		}
		envelopeSize := total
		if envelopeSize < 1 {
			envelopeSize = 1
		}
		respondJSON(w, http.StatusOK, newPaginatedResponse(r, stops, total, 0, envelopeSize))
		return
	}

	stops, total, err := h.store.Stops(r.Context(), zoneID, page**size, *size)
	if err != nil {
		h.logger.Error("list stops failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list stops")
		return
	}
	if stops == nil {
		stops = []domain.Stop{}
	}
	respondJSON(w, http.StatusOK, newPaginatedResponse(r, stops, total, page, *size))
}

// allStops returns the complete stop list, read through the cache when no
// zone filter applies.
func (h *StopHandler) allStops(ctx context.Context, zoneID string) ([]domain.Stop, int, error) {
	if zoneID == "" && h.cache != nil {
		var cached []domain.Stop
		if hit, err := h.cache.GetJSONCompressed(ctx, cache.KeyStops, &cached); err == nil && hit {
			return cached, len(cached), nil
		}
	}

	stops, total, err := h.store.Stops(ctx, zoneID, 0, -1)
	if err != nil {
		return nil, 0, err
	}
	if stops == nil {
		stops = []domain.Stop{}
	}
	if zoneID == "" && h.cache != nil {
		h.cache.SetJSONCompressed(ctx, cache.KeyStops, stops, h.cacheTTL)
	}
	return stops, total, nil
}

// GetStop handles GET /v1/stops/{id}.
func (h *StopHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	stop, err := h.store.StopByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "stop not found")
		return
	}
	if err != nil {
		h.logger.Error("get stop failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get stop")
		return
	}
	respondJSON(w, http.StatusOK, stop)
}

// GetScheduledArrivals handles GET /v1/stops/{id}/scheduled. The default
// view is the next 24 hours from now in the service's timezone; all=true
// switches to the full filtered timetable with database-side paging.
func (h *StopHandler) GetScheduledArrivals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stopID := r.PathValue("id")

	if _, err := h.store.StopByID(ctx, stopID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "stop not found")
			return
		}
		h.logger.Error("get stop failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get scheduled arrivals")
		return
	}

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

	var (
		arrivals []domain.StopArrival
		total    int
		err      error
	)
	if r.URL.Query().Get("all") == "true" {
		arrivals, total, err = h.merger.ListAll(ctx, stopID, routeID, serviceID, page, size)
	} else {
		now := time.Now().In(h.loc)
		arrivals, total, err = h.merger.ListWindowed(ctx, stopID, routeID, serviceID, now, now.Add(arrivalWindow), page, size)
	}
	if errors.Is(err, domain.ErrNoServiceDay) {
		respondError(w, http.StatusNotFound, "no service day found for the current date")
		return
	}
	if err != nil {
		h.logger.Error("list scheduled arrivals failed", "stop_id", stopID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get scheduled arrivals")
		return
	}
	if arrivals == nil {
		arrivals = []domain.StopArrival{}
	}

	respondJSON(w, http.StatusOK, newPaginatedResponse(r, arrivals, total, page, size))
}

type realtimeResponse struct {
	Arrivals   []domain.RealtimeArrival `json:"arrivals"`
	Count      int                      `json:"count"`
	ServerTime time.Time                `json:"server_time"`
}

// GetRealtimeArrivals handles GET /v1/stops/{id}/realtime. An upstream feed
// failure degrades to an empty board rather than an error.
func (h *StopHandler) GetRealtimeArrivals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stopID := r.PathValue("id")

	if _, err := h.store.StopByID(ctx, stopID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "stop not found")
			return
		}
		h.logger.Error("get stop failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get realtime arrivals")
		return
	}

	estimates, err := h.realtime.FetchStopRealtime(ctx, stopID)
	if err != nil {
		h.logger.Warn("realtime feed unavailable", "stop_id", stopID, "error", err)
		respondJSON(w, http.StatusOK, realtimeResponse{
			Arrivals:   []domain.RealtimeArrival{},
			ServerTime: time.Now().UTC(),
		})
		return
	}

	arrivals, err := h.matcher.ReconcileAll(ctx, estimates)
	if err != nil {
		h.logger.Error("reconcile arrivals failed", "stop_id", stopID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get realtime arrivals")
		return
	}
	if arrivals == nil {
		arrivals = []domain.RealtimeArrival{}
	}

	respondJSON(w, http.StatusOK, realtimeResponse{
		Arrivals:   arrivals,
		Count:      len(arrivals),
		ServerTime: time.Now().UTC(),
	})
}
