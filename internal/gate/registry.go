package gate

import (
	"sync"
	"time"

	"github.com/angeloszaimis/archive-gate/internal/archive"
)

// Streak is the running health history of one archive.
type Streak struct {
	Healthy    bool
	Failures   int // consecutive unhealthy rounds
	LastReason string
	Since      time.Time // when Healthy last flipped
}

// Transition reports an archive whose health flipped during Record.
type Transition struct {
	Archive string
	Healthy bool
	Reason  string
}

// Registry keeps a Streak per archive across rounds.
type Registry struct {
	mutex   sync.RWMutex
	streaks map[string]*Streak
}

func NewRegistry() *Registry {
	return &Registry{
		streaks: make(map[string]*Streak),
	}
}

// Record folds one report into the streaks. Archives seen for the first
// time are assumed to have been healthy before, so an archive that starts
// out unhealthy is reported as a transition.
func (r *Registry) Record(report archive.HealthReport) []Transition {
	now := time.Now()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	var transitions []Transition

	for _, url := range report.Healthy() {
		s := r.streak(url, now)
		if !s.Healthy {
			s.Healthy = true
			s.Since = now
			transitions = append(transitions, Transition{Archive: url, Healthy: true})
		}
		s.Failures = 0
		s.LastReason = ""
	}

	for _, f := range report.Unhealthy() {
		s := r.streak(f.Archive, now)
		if s.Healthy {
			s.Healthy = false
			s.Since = now
			transitions = append(transitions, Transition{Archive: f.Archive, Reason: f.Reason})
		}
		s.Failures++
		s.LastReason = f.Reason
	}

	return transitions
}

// streak must be called with the write lock held.
func (r *Registry) streak(url string, now time.Time) *Streak {
	s, exists := r.streaks[url]
	if !exists {
		s = &Streak{Healthy: true, Since: now}
		r.streaks[url] = s
	}
	return s
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.streaks = make(map[string]*Streak)
}

// Stats returns a copy of every streak keyed by archive URL.
func (r *Registry) Stats() map[string]Streak {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]Streak, len(r.streaks))
	for url, s := range r.streaks {
		stats[url] = *s
	}
	return stats
}
