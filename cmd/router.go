package main

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/archive-gate/internal/handler"
	"github.com/angeloszaimis/archive-gate/internal/httpserver"
	"github.com/angeloszaimis/archive-gate/internal/metrics"
)

func setupRouter(statusHandler *handler.StatusHandler, metricsCollector *metrics.Collector, limiter *rate.Limiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", statusHandler.ServeStatus)
	mux.HandleFunc("/readyz", statusHandler.ServeReady)
	mux.HandleFunc("/healthz", statusHandler.ServeHealth)
	mux.HandleFunc("/metrics", metricsCollector.Handler())

	return httpserver.Chain(mux, httpserver.RateLimit(limiter), httpserver.RequireGET)
}
