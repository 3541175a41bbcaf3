package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/archive-gate/internal/metrics"
)

// MetadataPath is the well-known file every history archive should publish.
const MetadataPath = "/.well-known/stellar-history.json"

// Prober runs the two-step reachability check against a single archive.
// A Prober is safe for concurrent use.
type Prober struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	events    chan<- metrics.MetricEvent
}

// Probe checks one archive. The metadata endpoint is tried first; any
// failure there falls through to a check of the archive root, and only the
// root check can mark the archive unhealthy. Each request gets its own
// timeout.
func (p *Prober) Probe(ctx context.Context, archive string, timeout time.Duration) Outcome {
	start := time.Now()
	base := strings.TrimSuffix(archive, "/")
	metadataURL := base + MetadataPath

	p.logger.Debug("Checking archive health", slog.String("url", metadataURL))

	status, err := p.head(ctx, metadataURL, timeout)
	switch {
	case err == nil && isSuccess(status):
		p.logger.Debug("Archive healthy (metadata endpoint)", slog.String("archive", archive))
		p.emit(archive, start, metrics.StepMetadata, true)
		return Healthy()
	case err == nil:
		p.logger.Debug("Metadata endpoint returned non-success, trying root",
			slog.String("archive", archive),
			slog.String("status", statusText(status)))
	default:
		p.logger.Debug("Metadata endpoint failed, trying root",
			slog.String("archive", archive),
			slog.Any("err", err))
	}

	status, err = p.head(ctx, base, timeout)
	if err != nil {
		reason := fmt.Sprintf("Connection failed: %v", err)
		p.logger.Warn("Archive unreachable",
			slog.String("archive", archive),
			slog.String("reason", reason))
		p.emit(archive, start, metrics.StepRoot, false)
		return Unhealthy(reason)
	}

	if !isSuccess(status) {
		reason := fmt.Sprintf("Archive returned HTTP %s", statusText(status))
		p.logger.Warn("Archive unhealthy",
			slog.String("archive", archive),
			slog.String("reason", reason))
		p.emit(archive, start, metrics.StepRoot, false)
		return Unhealthy(reason)
	}

	p.logger.Debug("Archive healthy (root endpoint)", slog.String("archive", archive))
	p.emit(archive, start, metrics.StepRoot, true)
	return Healthy()
}

// head issues a HEAD request bounded by timeout and returns the status code.
// Request construction errors are returned like transport errors.
func (p *Prober) head(ctx context.Context, rawURL string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	res, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	// Drain so the connection goes back to the pool.
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode, nil
}

func (p *Prober) emit(archive string, start time.Time, step string, healthy bool) {
	metrics.Emit(p.events, metrics.MetricEvent{
		Type:      metrics.EventProbeCompleted,
		Timestamp: time.Now(),
		Archive:   archive,
		Duration:  time.Since(start),
		Step:      step,
		Healthy:   healthy,
	})
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// statusText renders a code the way HTTP status lines do, e.g. "503 Service Unavailable".
func statusText(status int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", status, http.StatusText(status)))
}
