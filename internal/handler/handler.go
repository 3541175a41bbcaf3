package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/angeloszaimis/archive-gate/internal/gate"
	"github.com/angeloszaimis/archive-gate/internal/healthcheck"
)

const summaryPending = "Waiting for first archive check"

// StatusSource provides the latest round, typically a *healthcheck.Loop.
type StatusSource interface {
	Status() healthcheck.Status
}

type StatusHandler struct {
	logger *slog.Logger
	source StatusSource
}

func NewStatusHandler(logger *slog.Logger, source StatusSource) *StatusHandler {
	return &StatusHandler{
		logger: logger,
		source: source,
	}
}

// ServeStatus writes the full report of the latest round.
func (h *StatusHandler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	h.logRequest(r)

	status := h.source.Status()
	report := status.Report

	resp := StatusResponse{
		State:      status.State.String(),
		AllowStart: status.AllowStart,
		Summary:    summarize(status),
		Healthy:    report.Healthy(),
		Unhealthy:  make([]FailureResponse, 0, report.UnhealthyCount()),
		Attempt:    status.Attempt,
		LastError:  status.LastError,
	}
	if resp.Healthy == nil {
		resp.Healthy = []string{}
	}
	for _, f := range report.Unhealthy() {
		resp.Unhealthy = append(resp.Unhealthy, FailureResponse{Archive: f.Archive, Reason: f.Reason})
	}
	if !status.CheckedAt.IsZero() {
		resp.CheckedAt = &status.CheckedAt
		resp.NextCheck = &status.NextCheck
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ServeReady answers 200 when the dependent node may start and 503 otherwise.
func (h *StatusHandler) ServeReady(w http.ResponseWriter, r *http.Request) {
	h.logRequest(r)

	status := h.source.Status()
	code := http.StatusOK
	if !status.AllowStart {
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, ReadyResponse{
		Ready:   status.AllowStart,
		State:   status.State.String(),
		Summary: summarize(status),
	})
}

// ServeHealth is the liveness probe of the process itself.
func (h *StatusHandler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *StatusHandler) logRequest(r *http.Request) {
	h.logger.Debug("Received request",
		slog.String("from", extractClientIP(r)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("user_agent", r.UserAgent()))
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("err", err))
	}
}

// summarize describes status for operators. An empty report only means "no
// archives configured" once a round has produced it.
func summarize(status healthcheck.Status) string {
	switch {
	case status.State == gate.StatePending:
		return summaryPending
	case status.Report.Empty() && status.LastError != "":
		return "Archive check failed: " + status.LastError
	default:
		return status.Report.Summary()
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
