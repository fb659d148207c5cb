package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/cache"
	"github.com/carlosgalves/porto-transport-api/internal/calendar"
	"github.com/carlosgalves/porto-transport-api/internal/config"
	"github.com/carlosgalves/porto-transport-api/internal/handler"
	"github.com/carlosgalves/porto-transport-api/internal/hub"
	"github.com/carlosgalves/porto-transport-api/internal/ingestor"
	"github.com/carlosgalves/porto-transport-api/internal/metrics"
	"github.com/carlosgalves/porto-transport-api/internal/middleware"
	"github.com/carlosgalves/porto-transport-api/internal/schedule"
	"github.com/carlosgalves/porto-transport-api/internal/store"
	"github.com/carlosgalves/porto-transport-api/pkg/fiware"
	"github.com/carlosgalves/porto-transport-api/pkg/stcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting porto transport api",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"poll_interval", cfg.PollInterval.String(),
		"timezone", cfg.Timezone,
	)

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Ping(context.Background(), db); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	vehicleStore := store.NewVehicleStore(db)
	if err := vehicleStore.EnsureSchema(context.Background()); err != nil {
		logger.Error("failed to ensure vehicle schema", "error", err)
		os.Exit(1)
	}
	scheduleStore := store.NewScheduleStore(db)

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using system local time", "timezone", cfg.Timezone, "error", err)
		loc = time.Local
	}

	resolver := calendar.NewResolver(scheduleStore)
	merger := schedule.NewMerger(resolver, scheduleStore)
	matcher := schedule.NewMatcher(scheduleStore, logger)

	stcpClient := stcp.New(cfg.STCPBaseURL, logger)
	fiwareClient := fiware.New(cfg.FiwareURL, cfg.FiwareLimit, logger)

	collector := metrics.NewCollector(cfg.PollInterval)
	wsHub := hub.NewHub(logger)
	ing := ingestor.New(fiwareClient, vehicleStore, wsHub, collector, cfg.PollInterval, cfg.FetchTimeout, logger)

	stopHandler := handler.NewStopHandler(scheduleStore, merger, matcher, stcpClient, redisCache, cfg.CacheTTL, loc, logger)
	busHandler := handler.NewBusHandler(vehicleStore, logger)
	gtfsHandler := handler.NewGTFSHandler(scheduleStore, vehicleStore, resolver, redisCache, cfg.CacheTTL, loc, logger)
	wsHandler := handler.NewWebsocketHandler(wsHub, vehicleStore, logger)
	healthHandler := handler.NewHealthHandler(ing, func(ctx context.Context) (int, error) {
		stats, err := scheduleStore.Stats(ctx)
		return stats.Trips, err
	}, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/stops", stopHandler.ListStops)
	mux.HandleFunc("GET /v1/stops/{id}", stopHandler.GetStop)
	mux.HandleFunc("GET /v1/stops/{id}/scheduled", stopHandler.GetScheduledArrivals)
	mux.HandleFunc("GET /v1/stops/{id}/realtime", stopHandler.GetRealtimeArrivals)

	mux.HandleFunc("GET /v1/buses", busHandler.ListBuses)
	mux.HandleFunc("GET /v1/buses/{id}", busHandler.GetBus)

	mux.HandleFunc("GET /v1/routes", gtfsHandler.ListRoutes)
	mux.HandleFunc("GET /v1/routes/{id}", gtfsHandler.GetRoute)
	mux.HandleFunc("GET /v1/routes/{id}/shapes", gtfsHandler.GetRouteShapes)
	mux.HandleFunc("GET /v1/routes/{id}/stops", gtfsHandler.GetRouteStops)
	mux.HandleFunc("GET /v1/trips", gtfsHandler.ListTrips)
	mux.HandleFunc("GET /v1/trips/{id}", gtfsHandler.GetTrip)
	mux.HandleFunc("GET /v1/trips/{id}/shapes", gtfsHandler.GetTripShapes)
	mux.HandleFunc("GET /v1/trips/{id}/stops", gtfsHandler.GetTripStops)
	mux.HandleFunc("GET /v1/service-days", gtfsHandler.ListServiceDays)
	mux.HandleFunc("GET /v1/service-days/current", gtfsHandler.GetCurrentServiceDay)
	mux.HandleFunc("GET /v1/service-days/{id}", gtfsHandler.GetServiceDay)
	mux.HandleFunc("GET /v1/stats", gtfsHandler.GetStats)

	mux.HandleFunc("/v1/ws", wsHandler.Serve)

	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)
	mux.Handle("GET /metrics", collector.Handler())

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)

	var root http.Handler = mux
	root = handler.GzipMiddleware(root)
	root = handler.APIKeyMiddleware(cfg.APIKey)(root)
	root = rateLimiter.Middleware(root)
	root = handler.CORSMiddleware(root)
	root = handler.RequestIDMiddleware(root)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsHub.Run(ctx)
	go ing.Run(ctx)

	if redisCache != nil {
		warmer := cache.NewWarmer(redisCache, scheduleStore, cfg.CacheTTL, logger)
		if cfg.CacheWarmOnStart {
			go warmer.WarmAll(ctx)
		}
		go warmer.ScheduleDailyRefresh(ctx)
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
