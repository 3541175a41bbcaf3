package metrics

import (
	"sort"
	"sync"
	"time"
)

// maxSamples bounds the latency history kept per archive.
const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	probes        map[string]int64
	failures      map[string]int64
	fallbacks     map[string]int64
	latencies     map[string][]time.Duration
	healthStatus  map[string]bool
	rounds        int64
	lastHealthy   int
	lastUnhealthy int
	gateState     string
	gateChanges   int64
	startTime     time.Time
}

type Snapshot struct {
	TotalProbes int64                     `json:"total_probes"`
	TotalRounds int64                     `json:"total_rounds"`
	Uptime      time.Duration             `json:"uptime"`
	GateState   string                    `json:"gate_state"`
	GateChanges int64                     `json:"gate_changes"`
	LastRound   RoundMetrics              `json:"last_round"`
	Archives    map[string]ArchiveMetrics `json:"archives"`
}

type RoundMetrics struct {
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
}

type ArchiveMetrics struct {
	Probes     int64         `json:"probes"`
	Failures   int64         `json:"failures"`
	Fallbacks  int64         `json:"fallbacks"`
	Healthy    bool          `json:"healthy"`
	AvgLatency time.Duration `json:"avg_latency"`
	P50Latency time.Duration `json:"p50_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	P99Latency time.Duration `json:"p99_latency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		probes:       make(map[string]int64),
		failures:     make(map[string]int64),
		fallbacks:    make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

// RecordProbe counts one finished probe. step is the endpoint that decided
// the verdict; a healthy verdict from the root endpoint counts as a fallback.
func (m *Metrics) RecordProbe(archive string, duration time.Duration, step string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[archive]++
	if !healthy {
		m.failures[archive]++
	} else if step == StepRoot {
		m.fallbacks[archive]++
	}
	m.healthStatus[archive] = healthy

	m.latencies[archive] = append(m.latencies[archive], duration)
	if len(m.latencies[archive]) > maxSamples {
		m.latencies[archive] = m.latencies[archive][1:]
	}
}

func (m *Metrics) RecordRound(healthy, unhealthy int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rounds++
	m.lastHealthy = healthy
	m.lastUnhealthy = unhealthy
}

func (m *Metrics) UpdateGateState(state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.gateState != state {
		m.gateChanges++
	}
	m.gateState = state
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRounds: m.rounds,
		Uptime:      time.Since(m.startTime),
		GateState:   m.gateState,
		GateChanges: m.gateChanges,
		LastRound: RoundMetrics{
			Healthy:   m.lastHealthy,
			Unhealthy: m.lastUnhealthy,
		},
		Archives: make(map[string]ArchiveMetrics, len(m.probes)),
	}

	for archive, probes := range m.probes {
		snap.TotalProbes += probes

		am := ArchiveMetrics{
			Probes:    probes,
			Failures:  m.failures[archive],
			Fallbacks: m.fallbacks[archive],
			Healthy:   m.healthStatus[archive],
		}

		durations := m.latencies[archive]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			am.AvgLatency = average(sorted)
			am.P50Latency = percentile(sorted, 0.50)
			am.P95Latency = percentile(sorted, 0.95)
			am.P99Latency = percentile(sorted, 0.99)
		}

		snap.Archives[archive] = am
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
