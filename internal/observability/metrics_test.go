package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter_Inc(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_counter", "Test counter")

	c.Inc()
	c.Inc()
	c.Add(1.5)

	if c.Value() != 3.5 {
		t.Fatalf("expected 3.5, got %f", c.Value())
	}
}

func TestGauge_IncDec(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge")

	g.Inc()
	g.Inc()
	g.Dec()

	if g.Value() != 1 {
		t.Fatalf("expected 1, got %f", g.Value())
	}
}

func TestHistogram_Observe(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_histo", "Test histogram", []float64{1, 5})

	h.Observe(0.5)
	h.Observe(3)
	h.Observe(10)

	if h.Count() != 3 {
		t.Fatalf("expected 3 observations, got %d", h.Count())
	}
	if h.counts[0] != 1 || h.counts[1] != 2 {
		t.Fatalf("unexpected bucket counts %v", h.counts)
	}
}

func TestWritePrometheus(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("b_total", "B").Add(2)
	r.NewCounter("a_total", "A").Inc()
	r.NewHistogram("lat_seconds", "Latency", []float64{0.5}).Observe(0.25)

	var b strings.Builder
	r.WritePrometheus(&b)
	out := b.String()

	for _, want := range []string{
		"# TYPE a_total counter\na_total 1\n",
		"b_total 2\n",
		`lat_seconds_bucket{le="0.5"} 1`,
		`lat_seconds_bucket{le="+Inf"} 1`,
		"lat_seconds_sum 0.25\n",
		"lat_seconds_count 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "a_total") > strings.Index(out, "b_total") {
		t.Error("expected counters sorted by name")
	}
}

func TestMetrics_RecordLLMRequest(t *testing.T) {
	m := NewMetrics()

	m.RecordLLMRequest(200*time.Millisecond, false, false)
	m.RecordLLMRequest(time.Second, true, true)

	if m.LLMRequestsTotal.Value() != 2 {
		t.Errorf("expected 2 requests, got %f", m.LLMRequestsTotal.Value())
	}
	if m.LLMErrorsTotal.Value() != 1 {
		t.Errorf("expected 1 error, got %f", m.LLMErrorsTotal.Value())
	}
	if m.LLMStreamRequestsTotal.Value() != 1 {
		t.Errorf("expected 1 stream request, got %f", m.LLMStreamRequestsTotal.Value())
	}
	if m.LLMRequestDuration.Count() != 2 {
		t.Errorf("expected 2 observations, got %d", m.LLMRequestDuration.Count())
	}
}

func TestMetrics_StreamGauge(t *testing.T) {
	m := NewMetrics()
	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()

	if m.LLMStreamsOpen.Value() != 1 {
		t.Fatalf("expected 1 open stream, got %f", m.LLMStreamsOpen.Value())
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	// Should not panic
	m.RecordLLMRequest(time.Second, true, true)
	m.StreamOpened()
	m.StreamClosed()
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordLLMRequest(time.Second, false, false)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "muse_llm_requests_total 1") {
		t.Fatalf("expected request counter in output, got:\n%s", w.Body.String())
	}
}
