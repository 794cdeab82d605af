package waylens

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LatencyBuckets defines the frame/dispatch latency histogram buckets in
// nanoseconds, covering from 10us (a cheap dispatch) to 100ms (a badly
// missed frame deadline) with logarithmic spacing.
var LatencyBuckets = []uint64{
	10_000,      // 10us
	100_000,     // 100us
	1_000_000,   // 1ms
	4_000_000,   // 4ms  (quarter of a 60Hz frame)
	8_000_000,   // 8ms
	16_666_667,  // 16.67ms (one 60Hz frame)
	33_333_333,  // 33.33ms (one 30Hz frame)
	100_000_000, // 100ms
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for the
// compositor core: dispatcher throughput, frame scheduler timing, and
// input routing. Hot paths record into these atomics directly; the
// Prometheus collector below reads from the same fields for export so
// there is exactly one source of truth for each counter.
type Metrics struct {
	// Dispatcher
	RequestsDispatched atomic.Uint64
	EventsEnqueued     atomic.Uint64
	ProtocolErrors     atomic.Uint64

	// Surface & buffer pipeline
	SurfaceCommits     atomic.Uint64
	SurfaceCommitsHeld atomic.Uint64 // commits parked on an unmet barrier predicate
	BuffersReleased    atomic.Uint64

	// Frame scheduler
	FramesScheduled atomic.Uint64
	FramesPresented atomic.Uint64
	FramesDropped   atomic.Uint64

	// Input router
	PointerMotionEvents atomic.Uint64
	KeyEvents           atomic.Uint64
	FocusChanges        atomic.Uint64

	// Latency tracking (frame commit-to-present, dispatcher request handling)
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with its start time set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordDispatch records one completed protocol request dispatch.
func (m *Metrics) RecordDispatch(latencyNs uint64, err error) {
	m.RequestsDispatched.Add(1)
	if err != nil {
		m.ProtocolErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordCommit records a surface commit, distinguishing an immediately
// promoted commit from one parked behind a barrier predicate.
func (m *Metrics) RecordCommit(held bool) {
	m.SurfaceCommits.Add(1)
	if held {
		m.SurfaceCommitsHeld.Add(1)
	}
}

// RecordFrame records one output tick's outcome and its render latency.
func (m *Metrics) RecordFrame(latencyNs uint64, presented bool, dropped bool) {
	m.FramesScheduled.Add(1)
	if presented {
		m.FramesPresented.Add(1)
	}
	if dropped {
		m.FramesDropped.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordFocusChange records a pointer or keyboard focus transition.
func (m *Metrics) RecordFocusChange() {
	m.FocusChanges.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the compositor as stopped for uptime accounting.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics suitable for
// diagnostics output or a one-shot status query.
type MetricsSnapshot struct {
	RequestsDispatched uint64
	EventsEnqueued     uint64
	ProtocolErrors     uint64
	SurfaceCommits     uint64
	SurfaceCommitsHeld uint64
	BuffersReleased    uint64
	FramesScheduled    uint64
	FramesPresented    uint64
	FramesDropped      uint64
	PointerMotionEvents uint64
	KeyEvents           uint64
	FocusChanges        uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot returns a consistent-enough (not transactionally atomic across
// fields, matching the hot-path/low-overhead tradeoff) view of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		RequestsDispatched:  m.RequestsDispatched.Load(),
		EventsEnqueued:      m.EventsEnqueued.Load(),
		ProtocolErrors:      m.ProtocolErrors.Load(),
		SurfaceCommits:      m.SurfaceCommits.Load(),
		SurfaceCommitsHeld:  m.SurfaceCommitsHeld.Load(),
		BuffersReleased:     m.BuffersReleased.Load(),
		FramesScheduled:     m.FramesScheduled.Load(),
		FramesPresented:     m.FramesPresented.Load(),
		FramesDropped:       m.FramesDropped.Load(),
		PointerMotionEvents: m.PointerMotionEvents.Load(),
		KeyEvents:           m.KeyEvents.Load(),
		FocusChanges:        m.FocusChanges.Load(),
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) via linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter; used in tests.
func (m *Metrics) Reset() {
	m.RequestsDispatched.Store(0)
	m.EventsEnqueued.Store(0)
	m.ProtocolErrors.Store(0)
	m.SurfaceCommits.Store(0)
	m.SurfaceCommitsHeld.Store(0)
	m.BuffersReleased.Store(0)
	m.FramesScheduled.Store(0)
	m.FramesPresented.Store(0)
	m.FramesDropped.Store(0)
	m.PointerMotionEvents.Store(0)
	m.KeyEvents.Store(0)
	m.FocusChanges.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// PrometheusCollector exports a Metrics instance's counters as Prometheus
// metrics without duplicating the hot-path recorder: every collected
// value is read straight from the atomics above.
type PrometheusCollector struct {
	m *Metrics

	requestsDispatched *prometheus.Desc
	protocolErrors     *prometheus.Desc
	framesPresented    *prometheus.Desc
	framesDropped      *prometheus.Desc
	latencyP99         *prometheus.Desc
}

// NewPrometheusCollector builds a collector over m. Register it with a
// prometheus.Registry to expose /metrics.
func NewPrometheusCollector(m *Metrics) *PrometheusCollector {
	return &PrometheusCollector{
		m:                  m,
		requestsDispatched: prometheus.NewDesc("waylens_requests_dispatched_total", "Total protocol requests dispatched.", nil, nil),
		protocolErrors:     prometheus.NewDesc("waylens_protocol_errors_total", "Total protocol errors surfaced to clients.", nil, nil),
		framesPresented:    prometheus.NewDesc("waylens_frames_presented_total", "Total frames presented across all outputs.", nil, nil),
		framesDropped:      prometheus.NewDesc("waylens_frames_dropped_total", "Total frames dropped past their deadline.", nil, nil),
		latencyP99:         prometheus.NewDesc("waylens_latency_p99_seconds", "Estimated p99 latency across dispatch and frame timings.", nil, nil),
	}
}

func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestsDispatched
	ch <- c.protocolErrors
	ch <- c.framesPresented
	ch <- c.framesDropped
	ch <- c.latencyP99
}

func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.requestsDispatched, prometheus.CounterValue, float64(snap.RequestsDispatched))
	ch <- prometheus.MustNewConstMetric(c.protocolErrors, prometheus.CounterValue, float64(snap.ProtocolErrors))
	ch <- prometheus.MustNewConstMetric(c.framesPresented, prometheus.CounterValue, float64(snap.FramesPresented))
	ch <- prometheus.MustNewConstMetric(c.framesDropped, prometheus.CounterValue, float64(snap.FramesDropped))
	ch <- prometheus.MustNewConstMetric(c.latencyP99, prometheus.GaugeValue, float64(snap.LatencyP99Ns)/1e9)
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)
