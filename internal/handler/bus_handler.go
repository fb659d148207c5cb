package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
	"github.com/carlosgalves/porto-transport-api/internal/store"
)

type BusHandler struct {
	store  *store.VehicleStore
	logger *slog.Logger
}

func NewBusHandler(st *store.VehicleStore, logger *slog.Logger) *BusHandler {
	return &BusHandler{
		store:  st,
		logger: logger.With("component", "bus_handler"),
	}
}

// ListBuses handles GET /v1/buses. direction_id only narrows the result
// when route_id is also given.
func (h *BusHandler) ListBuses(w http.ResponseWriter, r *http.Request) {
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
	directionID, ok := parseDirectionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid direction_id parameter")
		return
	}

	positions, total, err := h.store.List(r.Context(), routeID, directionID, page*size, size)
	if err != nil {
		h.logger.Error("list buses failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list buses")
		return
	}
	if positions == nil {
		positions = []domain.VehiclePosition{}
	}

	respondJSON(w, http.StatusOK, newPaginatedResponse(r, positions, total, page, size))
}

// GetBus handles GET /v1/buses/{id}.
func (h *BusHandler) GetBus(w http.ResponseWriter, r *http.Request) {
	position, err := h.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "bus not found")
		return
	}
	if err != nil {
		h.logger.Error("get bus failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get bus")
		return
	}
	respondJSON(w, http.StatusOK, position)
}
