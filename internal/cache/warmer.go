package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/store"
)

// Warmer preloads the static schedule datasets into Redis so the first
// requests after startup do not all hit Postgres at once.
type Warmer struct {
	cache  *RedisCache
	store  *store.ScheduleStore
	ttl    time.Duration
	logger *slog.Logger
}

func NewWarmer(cache *RedisCache, st *store.ScheduleStore, ttl time.Duration, logger *slog.Logger) *Warmer {
	return &Warmer{
		cache:  cache,
		store:  st,
		ttl:    ttl,
		logger: logger.With("component", "cache_warmer"),
	}
}

// WarmAll loads every static dataset. Failures are logged per dataset and
// do not abort the remaining ones.
func (w *Warmer) WarmAll(ctx context.Context) {
	start := time.Now()
	w.logger.Info("cache warming started")

	w.warmRoutes(ctx)
	w.warmStops(ctx)
	w.warmServiceDays(ctx)

	w.logger.Info("cache warming finished", "duration_ms", time.Since(start).Milliseconds())
}

func (w *Warmer) warmRoutes(ctx context.Context) {
	routes, err := w.store.Routes(ctx)
	if err != nil {
		w.logger.Error("warm routes failed", "error", err)
		return
	}
	if err := w.cache.SetJSONCompressed(ctx, KeyRoutes, routes, w.ttl); err != nil {
		return
	}
	w.logger.Info("warmed routes", "count", len(routes))
}

func (w *Warmer) warmStops(ctx context.Context) {
	stops, _, err := w.store.Stops(ctx, "", 0, -1)
	if err != nil {
		w.logger.Error("warm stops failed", "error", err)
		return
	}
	if err := w.cache.SetJSONCompressed(ctx, KeyStops, stops, w.ttl); err != nil {
		return
	}
	w.logger.Info("warmed stops", "count", len(stops))
}

func (w *Warmer) warmServiceDays(ctx context.Context) {
	days, err := w.store.ServiceDays(ctx)
	if err != nil {
		w.logger.Error("warm service days failed", "error", err)
		return
	}
	if err := w.cache.SetJSON(ctx, KeyServiceDays, days, w.ttl); err != nil {
		return
	}
	w.logger.Info("warmed service days", "count", len(days))
}

// ScheduleDailyRefresh re-warms the cache shortly after midnight so the
// datasets roll over with the service day. Runs until ctx is cancelled.
func (w *Warmer) ScheduleDailyRefresh(ctx context.Context) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, now.Location()).AddDate(0, 0, 1)
		wait := time.Until(next)
		w.logger.Info("next cache refresh scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			w.WarmAll(ctx)
		}
	}
}
