// Package gate turns archive health reports into a start/hold decision for
// the node that depends on those archives.
//
// The Gate is a small state machine fed with one HealthReport per round:
//
//   - PENDING: no round has completed yet
//   - UNCONFIGURED: no archives are configured, nothing to wait for
//   - READY: every archive is healthy
//   - DEGRADED: some archives are healthy
//   - BLOCKED: no archive is healthy, or the round could not run
//
// Every round that does not end READY or UNCONFIGURED counts as a failed
// attempt, and NextDelay converts the attempt count into a backoff delay.
//
// Usage:
//
//	g := gate.New(archive.DefaultBackoff, false)
//	g.Observe(report)
//	if g.AllowStart() {
//	    // start or keep the validator running
//	}
//	time.Sleep(g.NextDelay(time.Minute))
package gate
