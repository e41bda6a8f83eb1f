// CLAUDE:SUMMARY In-process decode metrics (calls, failures by kind, latency) and Go runtime stats, exposed as JSON snapshots.
// Package observability keeps in-process counters for decode operations and
// samples Go runtime health. Everything lives in memory; snapshots are
// served as JSON by the HTTP API.
package observability

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/hydrate/kit"
)

// OpStats aggregates one operation.
type OpStats struct {
	Calls     int64            `json:"calls"`
	Failures  map[string]int64 `json:"failures,omitempty"` // by error kind
	TotalMS   int64            `json:"total_ms"`
	MaxMS     int64            `json:"max_ms"`
	LastError string           `json:"last_error,omitempty"`
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Since   time.Time          `json:"since"`
	Ops     map[string]OpStats `json:"ops"`
	Runtime RuntimeMetrics     `json:"runtime"`
}

// Metrics records operation outcomes. Safe for concurrent use.
type Metrics struct {
	since    time.Time
	classify func(error) string

	mu  sync.Mutex
	ops map[string]*OpStats
}

// NewMetrics creates an empty registry. classify maps an error to a short
// kind label; nil labels every failure "error".
func NewMetrics(classify func(error) string) *Metrics {
	if classify == nil {
		classify = func(error) string { return "error" }
	}
	return &Metrics{since: time.Now(), classify: classify, ops: make(map[string]*OpStats)}
}

// Observe records one call of op.
func (m *Metrics) Observe(op string, d time.Duration, err error) {
	ms := d.Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.ops[op]
	if !ok {
		s = &OpStats{}
		m.ops[op] = s
	}
	s.Calls++
	s.TotalMS += ms
	if ms > s.MaxMS {
		s.MaxMS = ms
	}
	if err != nil {
		if s.Failures == nil {
			s.Failures = make(map[string]int64)
		}
		s.Failures[m.classify(err)]++
		s.LastError = err.Error()
	}
}

// Instrument returns a kit middleware that records every call as op.
func (m *Metrics) Instrument(op string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			m.Observe(op, time.Since(start), err)
			return resp, err
		}
	}
}

// Ops lists the recorded operation names, sorted.
func (m *Metrics) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.ops))
	for k := range m.ops {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the current counters and samples the runtime.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	ops := make(map[string]OpStats, len(m.ops))
	for k, s := range m.ops {
		c := *s
		c.Failures = maps.Clone(s.Failures)
		ops[k] = c
	}
	m.mu.Unlock()

	return Snapshot{Since: m.since, Ops: ops, Runtime: CollectRuntimeMetrics()}
}
