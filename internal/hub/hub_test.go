package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, c *Client) PositionsMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg PositionsMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return PositionsMessage{}
	}
}

func TestHubFanout(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := NewClient("a", 4)
	b := NewClient("b", 4)
	h.Register(a)
	h.Register(b)

	h.Broadcast([]domain.VehiclePosition{{VehicleID: "3001", Lat: 41.1, Lon: -8.6}})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, "positions", msg.Type)
		require.Len(t, msg.Payload.Vehicles, 1)
		assert.Equal(t, "3001", msg.Payload.Vehicles[0].VehicleID)
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := NewClient("a", 4)
	h.Register(c)
	h.Unregister(c)

	select {
	case _, open := <-c.Send:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubBroadcastSkipsEmptyBatches(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := NewClient("a", 4)
	h.Register(c)

	h.Broadcast(nil)
	h.Broadcast([]domain.VehiclePosition{{VehicleID: "3001"}})

	msg := receive(t, c)
	require.Len(t, msg.Payload.Vehicles, 1)
}
