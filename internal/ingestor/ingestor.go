// Package ingestor runs the live position poller: a single background loop
// pulling the vehicle fleet from the broker on a fixed interval and
// upserting it into the position store.
package ingestor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
	"github.com/carlosgalves/porto-transport-api/internal/metrics"
)

// PositionFetcher pulls the current fleet snapshot. Implemented by
// fiware.Client.
type PositionFetcher interface {
	FetchVehicles(ctx context.Context) ([]domain.VehiclePosition, error)
}

// PositionWriter persists one cycle's positions atomically. Implemented by
// store.VehicleStore.
type PositionWriter interface {
	UpsertAll(ctx context.Context, positions []domain.VehiclePosition) error
}

// Broadcaster fans position updates out to live stream clients.
type Broadcaster interface {
	Broadcast(positions []domain.VehiclePosition)
}

type Ingestor struct {
	client       PositionFetcher
	store        PositionWriter
	broadcaster  Broadcaster
	collector    *metrics.Collector
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	ready   bool
	readyMu sync.RWMutex
}

func New(client PositionFetcher, store PositionWriter, broadcaster Broadcaster, collector *metrics.Collector, interval, fetchTimeout time.Duration, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		client:       client,
		store:        store,
		broadcaster:  broadcaster,
		collector:    collector,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "ingestor"),
	}
}

// Run polls until the context is cancelled. Cycles never overlap and a
// failed cycle only skips to the next tick; there is no terminal failure
// state.
func (i *Ingestor) Run(ctx context.Context) {
	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	i.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("ingestor stopped")
			return
		case <-ticker.C:
			i.poll(ctx)
		}
	}
}

// poll runs one fetch-upsert cycle. The timeout applies to the upstream
// fetch only; the upsert runs as a single transaction so a failure or
// cancellation mid-cycle leaves the store at its prior state.
func (i *Ingestor) poll(ctx context.Context) {
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, i.fetchTimeout)
	positions, err := i.client.FetchVehicles(fetchCtx)
	cancel()
	if err != nil {
		i.logger.Error("failed to fetch vehicle positions", "error", err)
		i.collector.PollCycles.WithLabelValues("fetch_error").Inc()
		return
	}

	if err := i.store.UpsertAll(ctx, positions); err != nil {
		i.logger.Error("failed to upsert vehicle positions", "error", err)
		i.collector.PollCycles.WithLabelValues("store_error").Inc()
		return
	}

	if i.broadcaster != nil {
		i.broadcaster.Broadcast(positions)
	}

	i.collector.PollCycles.WithLabelValues("success").Inc()
	i.collector.VehiclesUpserted.Add(float64(len(positions)))
	i.collector.VehiclesTracked.Set(float64(len(positions)))
	i.collector.PollDuration.Observe(time.Since(start).Seconds())

	if !i.IsReady() {
		i.setReady(true)
		i.logger.Info("ingestor ready", "vehicles", len(positions))
	}

	i.logger.Debug("poll completed", "vehicles", len(positions), "duration", time.Since(start))
}

func (i *Ingestor) IsReady() bool {
	i.readyMu.RLock()
	defer i.readyMu.RUnlock()
	return i.ready
}

func (i *Ingestor) setReady(ready bool) {
	i.readyMu.Lock()
	defer i.readyMu.Unlock()
	i.ready = ready
}
