// Package archive checks whether history archives are reachable.
//
// A Checker probes every configured archive concurrently. Each probe first
// issues a HEAD request for the archive's .well-known/stellar-history.json
// metadata file and falls back to a HEAD of the archive root when the
// metadata request fails. Results are collected into a HealthReport that
// classifies every archive as healthy or unhealthy, in input order.
//
// The package never retries and never sleeps. Callers that want to retry
// use Backoff (or a BackoffPolicy) to compute how long to wait before the
// next CheckAll.
//
// Usage:
//
//	checker, err := archive.NewChecker(archive.WithUserAgent("archive-gate/0.1.0"))
//	if err != nil {
//	    return err
//	}
//	report, err := checker.CheckAll(ctx, urls, 10*time.Second)
//	if err != nil {
//	    return err
//	}
//	if !report.AllHealthy() {
//	    log.Warn(report.Summary(), slog.String("details", report.ErrorDetails()))
//	    wait := archive.Backoff(attempt)
//	}
package archive
