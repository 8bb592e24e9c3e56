package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := NewMetrics("switchboard")
	b := NewMetrics("switchboard")

	a.Messages.WithLabelValues("sales").Inc()
	if got := testutil.ToFloat64(a.Messages.WithLabelValues("sales")); got != 1 {
		t.Fatalf("a messages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.Messages.WithLabelValues("sales")); got != 0 {
		t.Fatalf("b messages = %v, want 0", got)
	}
}

func TestObserveStageFeedsHistogramAndWindow(t *testing.T) {
	m := NewMetrics("switchboard")
	m.ObserveStage("respond", 120*time.Millisecond)

	snap := m.StageSnapshot()
	if len(snap.Stages) != 1 || snap.Stages[0].LastMS != 120 {
		t.Fatalf("snapshot = %+v", snap)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `switchboard_pipeline_stage_latency_ms_count{stage="respond"} 1`) {
		t.Fatalf("histogram missing from exposition:\n%s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStage("total", time.Second)
	m.ObserveIndicator("x")
	m.ResetStages()
	if snap := m.StageSnapshot(); len(snap.Stages) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
