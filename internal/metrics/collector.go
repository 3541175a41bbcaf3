package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventProbeCompleted EventType = "probe_completed"
	EventRoundCompleted EventType = "round_completed"
	EventGateChanged    EventType = "gate_changed"
)

// Probe steps reported with EventProbeCompleted.
const (
	StepMetadata = "metadata"
	StepRoot     = "root"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Archive   string
	Duration  time.Duration
	Step      string
	Healthy   bool
	Counts    RoundMetrics
	State     string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Archive, event.Duration, event.Step, event.Healthy)

	case EventRoundCompleted:
		c.metrics.RecordRound(event.Counts.Healthy, event.Counts.Unhealthy)

	case EventGateChanged:
		c.metrics.UpdateGateState(event.State)

	default:
		c.logger.Debug("Ignoring unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

// Emit sends event without blocking. The event is dropped when ch is nil or
// its buffer is full.
func Emit(ch chan<- MetricEvent, event MetricEvent) {
	if ch == nil {
		return
	}

	select {
	case ch <- event:
	default:
	}
}
