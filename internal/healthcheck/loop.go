package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/archive-gate/internal/archive"
	"github.com/angeloszaimis/archive-gate/internal/gate"
	"github.com/angeloszaimis/archive-gate/internal/metrics"
)

// Checker is the part of archive.Checker the loop depends on.
type Checker interface {
	CheckAll(ctx context.Context, archives []string, timeout time.Duration) (archive.HealthReport, error)
}

// Options configures a Loop.
type Options struct {
	Archives []string
	Timeout  time.Duration
	Interval time.Duration
	Events   chan<- metrics.MetricEvent
}

// Status is the outcome of the most recent round.
type Status struct {
	Report     archive.HealthReport
	State      gate.State
	Attempt    uint
	AllowStart bool
	CheckedAt  time.Time
	NextCheck  time.Time
	LastError  string
}

type Loop struct {
	checker  Checker
	gate     *gate.Gate
	registry *gate.Registry
	opts     Options
	logger   *slog.Logger

	mutex  sync.RWMutex
	status Status
}

func NewLoop(checker Checker, g *gate.Gate, registry *gate.Registry, opts Options, logger *slog.Logger) *Loop {
	return &Loop{
		checker:  checker,
		gate:     g,
		registry: registry,
		opts:     opts,
		logger:   logger,
		status:   Status{State: g.State()},
	}
}

// Run checks the archives immediately and then keeps checking until ctx is
// cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("Archive health loop started",
		slog.Int("archives", len(l.opts.Archives)),
		slog.Duration("interval", l.opts.Interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Archive health loop stopped")
			return

		case <-timer.C:
			delay, ok := l.RunOnce(ctx)
			if !ok {
				continue
			}
			timer.Reset(delay)
		}
	}
}

// RunOnce performs a single round and returns the delay before the next one.
// ok is false when ctx was cancelled during the round; nothing is recorded
// in that case.
func (l *Loop) RunOnce(ctx context.Context) (delay time.Duration, ok bool) {
	report, err := l.checker.CheckAll(ctx, l.opts.Archives, l.opts.Timeout)
	if ctx.Err() != nil {
		return 0, false
	}

	now := time.Now()

	if err != nil {
		changed := l.gate.RecordFailure()
		delay = l.gate.NextDelay(l.opts.Interval)

		l.logger.Error("Archive health check failed",
			slog.Any("err", err),
			slog.Uint64("attempt", uint64(l.gate.Attempt())),
			slog.Duration("retry_in", delay))

		l.afterRound(changed, now, delay, Status{
			Report:    l.Status().Report,
			LastError: err.Error(),
		})
		return delay, true
	}

	changed := l.gate.Observe(report)

	for _, t := range l.registry.Record(report) {
		if t.Healthy {
			l.logger.Info("Archive is back up", slog.String("archive", t.Archive))
		} else {
			l.logger.Warn("Archive is down",
				slog.String("archive", t.Archive),
				slog.String("reason", t.Reason))
		}
	}

	delay = l.gate.NextDelay(l.opts.Interval)

	if report.AllHealthy() || report.Empty() {
		l.logger.Info(report.Summary())
	} else {
		l.logger.Warn(report.Summary(),
			slog.String("details", report.ErrorDetails()),
			slog.Uint64("attempt", uint64(l.gate.Attempt())),
			slog.Duration("retry_in", delay))
	}

	metrics.Emit(l.opts.Events, metrics.MetricEvent{
		Type:      metrics.EventRoundCompleted,
		Timestamp: now,
		Counts: metrics.RoundMetrics{
			Healthy:   report.HealthyCount(),
			Unhealthy: report.UnhealthyCount(),
		},
	})

	l.afterRound(changed, now, delay, Status{Report: report})
	return delay, true
}

// afterRound completes status with the gate's view and publishes it.
func (l *Loop) afterRound(changed bool, now time.Time, delay time.Duration, status Status) {
	state := l.gate.State()

	if changed {
		l.logger.Info("Archive gate changed",
			slog.String("state", state.String()),
			slog.Bool("allow_start", l.gate.AllowStart()))

		metrics.Emit(l.opts.Events, metrics.MetricEvent{
			Type:      metrics.EventGateChanged,
			Timestamp: now,
			State:     state.String(),
		})
	}

	status.State = state
	status.Attempt = l.gate.Attempt()
	status.AllowStart = l.gate.AllowStart()
	status.CheckedAt = now
	status.NextCheck = now.Add(delay)

	l.mutex.Lock()
	l.status = status
	l.mutex.Unlock()
}

// Status returns the latest published status. The report inside is immutable.
func (l *Loop) Status() Status {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.status
}

// Streaks returns the per-archive health history.
func (l *Loop) Streaks() map[string]gate.Streak {
	return l.registry.Stats()
}
