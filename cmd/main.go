package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/archive-gate/config"
	"github.com/angeloszaimis/archive-gate/internal/archive"
	"github.com/angeloszaimis/archive-gate/internal/gate"
	"github.com/angeloszaimis/archive-gate/internal/handler"
	"github.com/angeloszaimis/archive-gate/internal/healthcheck"
	"github.com/angeloszaimis/archive-gate/internal/httpserver"
	"github.com/angeloszaimis/archive-gate/internal/metrics"
	"github.com/angeloszaimis/archive-gate/pkg/logger"
)

const metricsBufferSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	loop, err := newLoop(cfg, log, collector.EventChannel())
	if err != nil {
		log.Error("Failed to create archive checker", slog.Any("err", err))
		os.Exit(1)
	}

	if len(cfg.Archives) == 0 {
		log.Warn("No history archives configured, the gate will stay open")
	}

	go loop.Run(ctx)

	statusHandler := handler.NewStatusHandler(log, loop)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(statusHandler, collector, limiter))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Status API listening", slog.String("addr", srv.Addr()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting status API", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// newLoop wires the checker, gate and registry described by cfg.
func newLoop(cfg *config.Config, log *slog.Logger, events chan<- metrics.MetricEvent) (*healthcheck.Loop, error) {
	checker, err := archive.NewChecker(
		archive.WithTimeout(cfg.ProbeTimeout()),
		archive.WithUserAgent(cfg.Probe.UserAgent),
		archive.WithLogger(log),
		archive.WithEvents(events),
	)
	if err != nil {
		return nil, err
	}

	g := gate.New(cfg.BackoffPolicy(), cfg.Reconcile.RequireAll)

	return healthcheck.NewLoop(checker, g, gate.NewRegistry(), healthcheck.Options{
		Archives: cfg.Archives,
		Timeout:  cfg.ProbeTimeout(),
		Interval: cfg.ReconcileInterval(),
		Events:   events,
	}, log), nil
}
