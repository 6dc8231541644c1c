package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndExposition(t *testing.T) {
	m := NewMetrics()
	m.Iteration()
	m.Iteration()
	m.Reading(1714557600)
	m.Failure()
	m.SinkError("mqtt")

	if got := testutil.ToFloat64(m.iterations); got != 2 {
		t.Fatalf("iterations=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.readings); got != 1 {
		t.Fatalf("readings=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.sinkErrors.WithLabelValues("mqtt")); got != 1 {
		t.Fatalf("sink errors=%v want 1", got)
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Result().Body)
	for _, name := range []string{"simulator_checks_total 2", "simulator_reading_failures_total 1", `simulator_sink_errors_total{sink="mqtt"} 1`} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("exposition missing %q:\n%s", name, body)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Iteration()
	m.Reading(1)
	m.Failure()
	m.SinkError("kafka")
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have no registry")
	}
}
