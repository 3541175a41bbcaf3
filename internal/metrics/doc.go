// Package metrics collects archive probe statistics in memory.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Probe counts and failures per archive
//   - Fallback hits (archive healthy only through its root endpoint)
//   - Probe latency with percentile calculations (P50, P95, P99)
//   - Healthy/unhealthy counts of the last check round
//   - The current gate state and how often it changed
//
// Producers never block: Emit drops the event when the buffer is full, so a
// slow collector cannot stall a probe.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	metrics.Emit(collector.EventChannel(), metrics.MetricEvent{
//		Type:     metrics.EventProbeCompleted,
//		Archive:  "https://history.stellar.org/prd/core-live/core_live_001",
//		Duration: 150 * time.Millisecond,
//		Step:     metrics.StepMetadata,
//		Healthy:  true,
//	})
//
//	snapshot := collector.Snapshot()
//
// Remaining events are drained when the collector's context is cancelled.
package metrics
