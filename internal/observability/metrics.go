package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps in-memory counters for requests, errors and gatekeeper decisions.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	decisions    map[string]int64
	latencyTotal time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	Decisions      map[string]int64 `json:"decisions"`
	AverageLatency string           `json:"averageLatency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		decisions:    make(map[string]int64),
	}
}

// RecordRequest counts a completed request. route should be a route pattern
// (see RouteLabel), never a raw path.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := method + " " + route + " " + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal += duration
}

// RecordError counts an error response by route pattern and code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[method+" "+route+" "+code]++
}

// RecordDecision counts a gatekeeper outcome such as "allow" or "redirect_login".
func (m *Metrics) RecordDecision(outcome, reason string) {
	if m == nil {
		return
	}
	key := outcome
	if reason != "" {
		key += ":" + reason
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[key]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Requests:  copyCounts(m.requestCount),
		Errors:    copyCounts(m.errorCount),
		Decisions: copyCounts(m.decisions),
	}
	var total int64
	for _, n := range m.requestCount {
		total += n
	}
	if total > 0 {
		s.AverageLatency = (m.latencyTotal / time.Duration(total)).String()
	}
	return s
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
