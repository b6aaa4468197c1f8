package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRecordsQueriesAndGates(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRelayCollector(reg)
	if err != nil {
		t.Fatalf("NewRelayCollector: %v", err)
	}

	collector.RecordQuery("read_merged")
	collector.RecordQuery("read_merged")
	collector.RecordGateCheck(true)
	collector.RecordGateCheck(false)
	collector.RecordSignalsRelayed(3)

	if got := testutil.ToFloat64(collector.EngineQueries.WithLabelValues("read_merged")); got != 2 {
		t.Fatalf("signalbus_queries_total{op=read_merged} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.GateChecks.WithLabelValues("eligible")); got != 1 {
		t.Fatalf("relay_gate_checks_total{outcome=eligible} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.GateChecks.WithLabelValues("waiting")); got != 1 {
		t.Fatalf("relay_gate_checks_total{outcome=waiting} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SignalsRelayed); got != 3 {
		t.Fatalf("relay_signals_relayed_total = %v, want 3", got)
	}
}

func TestCollectorObservesUpdateDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRelayCollector(reg)
	if err != nil {
		t.Fatalf("NewRelayCollector: %v", err)
	}

	collector.ObserveUpdateDuration(0.002)
	collector.ObserveUpdateDuration(0.004)

	if count := histogramSampleCount(t, reg, "relay_update_duration_seconds"); count != 2 {
		t.Fatalf("relay_update_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestMetricsHandlerExposesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRelayCollector(reg)
	if err != nil {
		t.Fatalf("NewRelayCollector: %v", err)
	}
	collector.SetLinkCounts(4, 2)
	collector.SetRegistryCounts(3, 5, 7)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	for _, want := range []string{
		"relay_links 4",
		"relay_links_up 2",
		"registry_platforms 3",
		"registry_surfaces 5",
		"registry_nodes 7",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("/metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNewRelayCollectorTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRelayCollector(reg)
	if err != nil {
		t.Fatalf("first NewRelayCollector: %v", err)
	}
	second, err := NewRelayCollector(reg)
	if err != nil {
		t.Fatalf("second NewRelayCollector: %v", err)
	}

	first.RecordQuery("read_channel")
	second.RecordQuery("read_channel")
	if got := testutil.ToFloat64(first.EngineQueries.WithLabelValues("read_channel")); got != 2 {
		t.Fatalf("shared counter = %v, want 2", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *RelayCollector
	c.RecordQuery("read_channel")
	c.RecordGateCheck(true)
	c.RecordSignalsRelayed(1)
	c.SetLinkCounts(1, 1)
	c.SetRegistryCounts(1, 1, 1)
	c.ObserveUpdateDuration(0.1)
}

func histogramSampleCount(t *testing.T, reg prometheus.Gatherer, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var fam *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == name {
			fam = f
			break
		}
	}
	if fam == nil {
		t.Fatalf("histogram %q not found", name)
	}
	for _, m := range fam.GetMetric() {
		if h := m.GetHistogram(); h != nil {
			return h.GetSampleCount()
		}
	}
	t.Fatalf("metric family %q carries no histogram", name)
	return 0
}
