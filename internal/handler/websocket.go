package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/carlosgalves/porto-transport-api/internal/hub"
	"github.com/carlosgalves/porto-transport-api/internal/store"
)

const (
	clientBufferSize = 16
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// WebsocketHandler upgrades /v1/ws connections and bridges them to the hub.
// Each client gets the current position snapshot on connect, then the
// per-cycle updates the poller broadcasts.
type WebsocketHandler struct {
	hub      *hub.Hub
	vehicles *store.VehicleStore
	logger   *slog.Logger
}

func NewWebsocketHandler(h *hub.Hub, vehicles *store.VehicleStore, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		hub:      h,
		vehicles: vehicles,
		logger:   logger.With("component", "websocket_handler"),
	}
}

func (h *WebsocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	client := hub.NewClient(uuid.NewString(), clientBufferSize)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.sendSnapshot(ctx, conn); err != nil {
		h.logger.Warn("snapshot send failed", "client_id", client.ID, "error", err)
		return
	}

	// The read loop drains client frames so pings get answered; close or
	// error on either side tears the connection down.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	h.writeLoop(ctx, conn, client)
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *WebsocketHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn) error {
	positions, err := h.vehicles.Snapshot(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(hub.PositionsMessage{
		Type:    "positions",
		Payload: hub.PositionsPayload{Vehicles: positions},
	})
	if err != nil {
		return err
	}
	return h.write(ctx, conn, data)
}

func (h *WebsocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-client.Send:
			if !ok {
				return
			}
			if err := h.write(ctx, conn, data); err != nil {
				h.logger.Debug("websocket write failed", "client_id", client.ID, "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logger.Debug("websocket ping failed", "client_id", client.ID, "error", err)
				return
			}
		}
	}
}

func (h *WebsocketHandler) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
