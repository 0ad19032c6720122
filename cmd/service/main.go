package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/config"
	httphandler "github.com/kjstillabower/stem-explorer/internal/http"
	"github.com/kjstillabower/stem-explorer/internal/lifecycle"
	"github.com/kjstillabower/stem-explorer/internal/observability"
	"github.com/kjstillabower/stem-explorer/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	store, memcacheCloser, err := newUploadStore(cfg)
	if err != nil {
		logger.Fatal("upload store", zap.Error(err))
	}
	if memcacheCloser != nil {
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	} else {
		logger.Info("cache backend: in_memory", zap.Int("max_entries", cfg.InMemoryMaxEntries))
	}

	publications := service.NewPublications(store, service.PublicationsConfig{
		MaxBytes:        cfg.UploadMaxBytes,
		TTL:             cfg.UploadTTL,
		CoalesceTimeout: cfg.UploadCoalesceTimeout,
	})

	handlerCfg := httphandler.Config{
		SiteTitle:            cfg.PageTitle,
		Profile:              cfg.Profile,
		MaxUploadBytes:       cfg.UploadMaxBytes,
		HealthWindow:         cfg.HealthWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		DegradedErrorPct:     cfg.DegradedErrorPct,
	}
	if memcacheCloser != nil {
		handlerCfg.CachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(publications, service.NewExplorer(), service.NewContact(), handlerCfg, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete", zap.Duration("drain", lifecycle.DrainDuration()))
}

// newUploadStore builds the configured upload store. The memcached client is
// also returned so main can ping and close it.
func newUploadStore(cfg *config.Config) (cache.UploadStore, *cache.MemcachedCache, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		return mc, mc, nil
	case "in_memory", "":
		return cache.NewInMemoryCache(cfg.InMemoryMaxEntries), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
