package archive

import (
	"fmt"
	"strings"
)

// Outcome is the verdict of probing a single archive.
// The zero value is an unhealthy outcome with an empty reason.
type Outcome struct {
	healthy bool
	reason  string
}

// Healthy returns a passing Outcome.
func Healthy() Outcome {
	return Outcome{healthy: true}
}

// Unhealthy returns a failing Outcome. The reason is shown to operators
// as-is.
func Unhealthy(reason string) Outcome {
	return Outcome{reason: reason}
}

// IsHealthy reports whether the probe passed.
func (o Outcome) IsHealthy() bool {
	return o.healthy
}

// Reason returns the failure description, or "" for a healthy outcome.
func (o Outcome) Reason() string {
	return o.reason
}

// Failure pairs an archive with the reason it was found unhealthy.
type Failure struct {
	Archive string
	Reason  string
}

// HealthReport is the classified result of checking a set of archives.
// A report is never modified after it is built; the accessors return copies.
type HealthReport struct {
	healthy   []string
	unhealthy []Failure
}

// NewHealthReport builds a report from already classified archives.
func NewHealthReport(healthy []string, unhealthy []Failure) HealthReport {
	return HealthReport{
		healthy:   append([]string(nil), healthy...),
		unhealthy: append([]Failure(nil), unhealthy...),
	}
}

// buildReport partitions outcomes[i] for archives[i], keeping input order.
func buildReport(archives []string, outcomes []Outcome) HealthReport {
	report := HealthReport{
		healthy:   make([]string, 0, len(archives)),
		unhealthy: make([]Failure, 0),
	}

	for i, archive := range archives {
		if outcomes[i].IsHealthy() {
			report.healthy = append(report.healthy, archive)
			continue
		}
		report.unhealthy = append(report.unhealthy, Failure{
			Archive: archive,
			Reason:  outcomes[i].Reason(),
		})
	}

	return report
}

// Healthy returns the archives that passed, in input order.
func (r HealthReport) Healthy() []string {
	return append([]string(nil), r.healthy...)
}

// Unhealthy returns the archives that failed with their reasons, in input order.
func (r HealthReport) Unhealthy() []Failure {
	return append([]Failure(nil), r.unhealthy...)
}

// HealthyCount returns the number of healthy archives.
func (r HealthReport) HealthyCount() int {
	return len(r.healthy)
}

// UnhealthyCount returns the number of unhealthy archives.
func (r HealthReport) UnhealthyCount() int {
	return len(r.unhealthy)
}

// Empty reports whether no archives were checked.
func (r HealthReport) Empty() bool {
	return len(r.healthy) == 0 && len(r.unhealthy) == 0
}

// AllHealthy is true when at least one archive was checked and none failed.
func (r HealthReport) AllHealthy() bool {
	return len(r.unhealthy) == 0 && len(r.healthy) > 0
}

// AnyHealthy is true when at least one archive passed.
func (r HealthReport) AnyHealthy() bool {
	return len(r.healthy) > 0
}

// Summary returns a one-line status suitable for logs.
func (r HealthReport) Summary() string {
	switch {
	case r.Empty():
		return "No archives configured"
	case r.AllHealthy():
		return fmt.Sprintf("All %d archive(s) healthy", len(r.healthy))
	case r.AnyHealthy():
		return fmt.Sprintf("%d healthy, %d unhealthy archive(s)", len(r.healthy), len(r.unhealthy))
	default:
		return fmt.Sprintf("All %d archive(s) unhealthy", len(r.unhealthy))
	}
}

// ErrorDetails lists every unhealthy archive on its own line as
// "  - <archive>: <reason>". It returns "" when nothing failed.
func (r HealthReport) ErrorDetails() string {
	lines := make([]string, 0, len(r.unhealthy))
	for _, f := range r.unhealthy {
		lines = append(lines, fmt.Sprintf("  - %s: %s", f.Archive, f.Reason))
	}
	return strings.Join(lines, "\n")
}
