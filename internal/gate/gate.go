package gate

import (
	"sync"
	"time"

	"github.com/angeloszaimis/archive-gate/internal/archive"
)

type State int

const (
	StatePending      State = iota // No round observed yet
	StateUnconfigured              // Empty archive list
	StateReady                     // All archives healthy
	StateDegraded                  // Some archives healthy
	StateBlocked                   // No archive healthy
)

type Gate struct {
	mutex      sync.Mutex
	state      State
	attempt    uint
	lastChange time.Time
	requireAll bool
	policy     archive.BackoffPolicy
}

// New creates a Gate in PENDING state. With requireAll set, a DEGRADED
// round keeps the gate closed.
func New(policy archive.BackoffPolicy, requireAll bool) *Gate {
	return &Gate{
		state:      StatePending,
		lastChange: time.Now(),
		requireAll: requireAll,
		policy:     policy,
	}
}

// Observe classifies a report and updates the attempt counter.
// It returns true when the state changed.
func (g *Gate) Observe(report archive.HealthReport) bool {
	var next State
	switch {
	case report.Empty():
		next = StateUnconfigured
	case report.AllHealthy():
		next = StateReady
	case report.AnyHealthy():
		next = StateDegraded
	default:
		next = StateBlocked
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if next == StateReady || next == StateUnconfigured {
		g.attempt = 0
	} else {
		g.attempt++
	}

	return g.setState(next)
}

// RecordFailure marks a round that produced no report at all.
func (g *Gate) RecordFailure() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.attempt++
	return g.setState(StateBlocked)
}

func (g *Gate) setState(next State) bool {
	if g.state == next {
		return false
	}
	g.state = next
	g.lastChange = time.Now()
	return true
}

func (g *Gate) State() State {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.state
}

// Attempt returns the number of consecutive rounds that were not fully healthy.
func (g *Gate) Attempt() uint {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.attempt
}

func (g *Gate) LastChange() time.Time {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.lastChange
}

// AllowStart reports whether the dependent node may run.
func (g *Gate) AllowStart() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.allowStart()
}

func (g *Gate) allowStart() bool {
	switch g.state {
	case StateReady, StateUnconfigured:
		return true
	case StateDegraded:
		return !g.requireAll
	default:
		return false
	}
}

// NextDelay returns how long to wait before the next round: interval after
// a healthy round, otherwise the backoff delay for the current attempt.
// The first failed round waits the policy's base delay.
func (g *Gate) NextDelay(interval time.Duration) time.Duration {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	switch {
	case g.state == StatePending:
		return 0
	case g.attempt == 0:
		return interval
	default:
		return g.policy.Delay(g.attempt - 1)
	}
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateUnconfigured:
		return "UNCONFIGURED"
	case StateReady:
		return "READY"
	case StateDegraded:
		return "DEGRADED"
	case StateBlocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}
