package observability

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram. Nil buckets means
// DefaultBuckets.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buckets == nil {
		buckets = DefaultBuckets()
	}
	h := &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns latency buckets in seconds sized for local model
// inference, which routinely takes several seconds.
func DefaultBuckets() []float64 {
	return []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// Count returns how many observations were recorded.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Handler returns an HTTP handler serving the Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes every metric, sorted by name, in Prometheus text
// format.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		writeMetric(&b, c.name, "counter", c.help, c.Value())
	}
	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		writeMetric(&b, g.name, "gauge", g.help, g.Value())
	}
	for _, name := range sortedKeys(r.histos) {
		writeHistogram(&b, r.histos[name])
	}
	io.WriteString(w, b.String())
}

func writeMetric(b *strings.Builder, name, metricType, help string, value float64) {
	b.WriteString("# HELP " + name + " " + help + "\n")
	b.WriteString("# TYPE " + name + " " + metricType + "\n")
	b.WriteString(name + " " + formatFloat(value) + "\n")
}

func writeHistogram(b *strings.Builder, h *Histogram) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b.WriteString("# HELP " + h.name + " " + h.help + "\n")
	b.WriteString("# TYPE " + h.name + " histogram\n")
	// counts are already cumulative: Observe bumps every bucket whose bound
	// is >= v.
	for i, bound := range h.buckets {
		b.WriteString(h.name + `_bucket{le="` + formatFloat(bound) + `"} `)
		b.WriteString(strconv.FormatUint(h.counts[i], 10) + "\n")
	}
	b.WriteString(h.name + `_bucket{le="+Inf"} ` + strconv.FormatUint(h.count, 10) + "\n")
	b.WriteString(h.name + "_sum " + formatFloat(h.sum) + "\n")
	b.WriteString(h.name + "_count " + strconv.FormatUint(h.count, 10) + "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Metrics are the muse-specific instruments.
type Metrics struct {
	Registry *MetricsRegistry

	LLMRequestsTotal       *Counter
	LLMErrorsTotal         *Counter
	LLMStreamRequestsTotal *Counter
	LLMRequestDuration     *Histogram
	LLMStreamsOpen         *Gauge
}

// NewMetrics creates the muse instruments on a fresh registry.
func NewMetrics() *Metrics {
	r := NewMetricsRegistry()
	return &Metrics{
		Registry:               r,
		LLMRequestsTotal:       r.NewCounter("muse_llm_requests_total", "Total chat requests sent to the model server"),
		LLMErrorsTotal:         r.NewCounter("muse_llm_errors_total", "Chat requests that ended in an error record"),
		LLMStreamRequestsTotal: r.NewCounter("muse_llm_stream_requests_total", "Chat requests made with streaming enabled"),
		LLMRequestDuration:     r.NewHistogram("muse_llm_request_duration_seconds", "Time until the model server answered", nil),
		LLMStreamsOpen:         r.NewGauge("muse_llm_streams_open", "Streamed replies handed to callers and not yet closed"),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordLLMRequest records one Generate call. Safe on a nil receiver.
func (m *Metrics) RecordLLMRequest(duration time.Duration, stream, failed bool) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.Inc()
	m.LLMRequestDuration.Observe(duration.Seconds())
	if stream {
		m.LLMStreamRequestsTotal.Inc()
	}
	if failed {
		m.LLMErrorsTotal.Inc()
	}
}

// StreamOpened marks a streamed body as handed out. Safe on a nil receiver.
func (m *Metrics) StreamOpened() {
	if m != nil {
		m.LLMStreamsOpen.Inc()
	}
}

// StreamClosed marks a streamed body as released. Safe on a nil receiver.
func (m *Metrics) StreamClosed() {
	if m != nil {
		m.LLMStreamsOpen.Dec()
	}
}
