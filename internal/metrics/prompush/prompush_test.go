package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"olistdw/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing_gateway_url", jobName: "olist", wantErr: true},
		{name: "default_job_name", gatewayURL: "http://pushgateway:9091", wantJobName: "olist_etl"},
		{name: "explicit_job_name", jobName: "nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "nightly"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want nil, error", tt.jobName, tt.gatewayURL, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend() error = %v", err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
		})
	}
}

func TestIncCounter_Routing(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("olist", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load_dimensions", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": "referential_dropped"})
	b.IncCounter(metrics.TableRowsTotal, 12, metrics.Labels{"table": "fact_order_items", "kind": "inserted"})
	b.IncCounter(metrics.BatchesTotal, 2, nil)
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	if got := readCounterValue(t, b.stepCounter.WithLabelValues("load_dimensions", "success")); got != 1 {
		t.Fatalf("step counter = %v, want 1", got)
	}
	if got := readCounterValue(t, b.recordCounter.WithLabelValues("referential_dropped")); got != 4 {
		t.Fatalf("record counter = %v, want 4", got)
	}
	if got := readCounterValue(t, b.tableCounter.WithLabelValues("fact_order_items", "inserted")); got != 12 {
		t.Fatalf("table counter = %v, want 12", got)
	}
	if got := readCounterValue(t, b.batchCounter); got != 2 {
		t.Fatalf("batch counter = %v, want 2", got)
	}
}

func TestNilCollectorsAreSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "extracted"})
	b.IncCounter(metrics.TableRowsTotal, 1, metrics.Labels{"table": "dim_date", "kind": "loaded"})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("olist", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.ObserveHistogram(metrics.StepDuration, 1.5, metrics.Labels{"step": "verify", "status": "success"})
	b.ObserveHistogram("other_metric", 9, metrics.Labels{"step": "verify", "status": "success"})

	m := &dto.Metric{}
	metric := b.stepDuration.WithLabelValues("verify", "success").(prometheus.Metric)
	if err := metric.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.GetSummary().GetSampleCount() != 1 || m.GetSummary().GetSampleSum() != 1.5 {
		t.Fatalf("summary = %v, want count=1 sum=1.5", m.GetSummary())
	}
}

func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	type pushRequest struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequest{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("olist", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.WithGrouping("instance", "worker-1")
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "extract", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushRequest
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() did not reach the Pushgateway")
	}
	if got.method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", got.method)
	}
	if !strings.Contains(got.path, "/job/olist") || !strings.Contains(got.path, "/instance/worker-1") {
		t.Fatalf("path = %s, want job and grouping segments", got.path)
	}
	if got.body == "" {
		t.Fatalf("push body is empty")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("olist", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if err := b.Flush(); err == nil {
		t.Fatalf("expected error from failing gateway")
	}
}

func TestRunMetrics(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("olist", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.RunTotal, 1, metrics.Labels{"run_id": "r1", "status": "success"})
	b.ObserveHistogram(metrics.RunDuration, 42, metrics.Labels{"run_id": "r1", "status": "success"})

	if got := readCounterValue(t, b.runCounter.WithLabelValues("success")); got != 1 {
		t.Fatalf("run counter = %v, want 1", got)
	}
	m := &dto.Metric{}
	if err := b.runDuration.WithLabelValues("success").Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 42 {
		t.Fatalf("run duration = %v, want 42", got)
	}
}
