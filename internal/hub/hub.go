// Package hub fans live vehicle position updates out to websocket clients.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

type Client struct {
	ID   string
	Send chan []byte
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{
		ID:   id,
		Send: make(chan []byte, bufferSize),
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []domain.VehiclePosition

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []domain.VehiclePosition, 64),
		logger:     logger.With("component", "hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.ID, "total", total)

		case client := <-h.unregister:
			h.removeClient(client)

		case positions := <-h.broadcast:
			h.fanout(positions)
		}
	}
}

// Broadcast queues a position batch for fanout; drops the batch when the hub
// is backed up rather than blocking the poller.
func (h *Hub) Broadcast(positions []domain.VehiclePosition) {
	if len(positions) == 0 {
		return
	}
	select {
	case h.broadcast <- positions:
	default:
		h.logger.Warn("broadcast channel full, dropping batch", "count", len(positions))
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PositionsMessage is the wire format for both the initial snapshot and the
// per-cycle updates.
type PositionsMessage struct {
	Type    string           `json:"type"`
	Payload PositionsPayload `json:"payload"`
}

type PositionsPayload struct {
	Vehicles []domain.VehiclePosition `json:"vehicles"`
}

func (h *Hub) fanout(positions []domain.VehiclePosition) {
	data, err := json.Marshal(PositionsMessage{
		Type:    "positions",
		Payload: PositionsPayload{Vehicles: positions},
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Debug("client send buffer full", "client_id", client.ID)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("client unregistered", "client_id", client.ID, "total", len(h.clients))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
}
