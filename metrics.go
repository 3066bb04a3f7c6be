package goGate

import (
	"sync/atomic"
	"time"
)

// MetricID names one session or guard counter. Exporters map ids to names through
// metrics/export/internaldefs.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that established a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricLogout counts logouts acknowledged by the server.
	MetricLogout
	// MetricLogoutFailure counts logouts whose server call failed; the local purge still ran.
	MetricLogoutFailure
	// MetricVerifySuccess counts verifications that refreshed the user.
	MetricVerifySuccess
	// MetricVerifyFailure counts verifications that ended the session.
	MetricVerifyFailure
	// MetricVerifyNoToken counts verifications skipped because no token was held.
	MetricVerifyNoToken
	// MetricTokenExpiredLocal counts tokens rejected locally on their exp claim.
	MetricTokenExpiredLocal
	// MetricSessionRestored counts sessions restored from storage at start.
	MetricSessionRestored
	// MetricSessionPurged counts purges of local session state.
	MetricSessionPurged
	// MetricStorageFailure counts token or user storage errors.
	MetricStorageFailure
	// MetricNavigationProceed counts guard decisions that let a transition through.
	MetricNavigationProceed
	// MetricNavigationRedirect counts guard redirects.
	MetricNavigationRedirect
	// MetricNavigationBlock counts guard blocks.
	MetricNavigationBlock
	// MetricOperatorRedirect counts redirects of restricted operators to the operator screen.
	MetricOperatorRedirect
	// MetricPasswordPrompt counts transitions that raised the password modal.
	MetricPasswordPrompt
	// MetricVerifyLatency is the verify round-trip latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const latencyBuckets = 8

// counter sits alone on a cache line; the guard and verification paths of several
// terminals bump neighbouring ids at once.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is the in-process registry behind [Engine.MetricsSnapshot]. All methods accept a
// nil receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	verifyLatency [latencyBuckets]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter plus the verify latency
// buckets when histograms are on.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a registry; latency histograms need cfg.Enabled as well.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the verify latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc bumps id. It is a no-op on a nil or disabled registry.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d into the histogram of id. Only [MetricVerifyLatency] carries one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if id != MetricVerifyLatency || !m.LatencyEnabled() {
		return
	}
	m.verifyLatency[bucketIndex(d)].Add(1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter. A disabled registry yields empty, non-nil maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := range metricIDCount {
		if id != MetricVerifyLatency {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if m.enableLatency {
		buckets := make([]uint64, latencyBuckets)
		for i := range buckets {
			buckets[i] = m.verifyLatency[i].Load()
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

// latencyBounds are the inclusive upper bounds of every bucket but the last (+Inf).
var latencyBounds = [latencyBuckets - 1]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return latencyBuckets - 1
}
