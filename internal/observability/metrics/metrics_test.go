package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCRMMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCRMMetrics(reg)
	m.ObserveCreated("widget")
	m.ObserveCreated("widget")
	m.ObserveCreated("manual")
	m.ObserveTransition("Converted")
	m.ObserveCache("hit")
	m.ObserveLatency("create", 0.01)

	if got := testutil.ToFloat64(m.appointmentsCreated.WithLabelValues("widget")); got != 2 {
		t.Fatalf("expected 2 widget creates, got %v", got)
	}
	if got := testutil.ToFloat64(m.statusTransitions.WithLabelValues("Converted")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.CollectAndCount(m.appointmentsCreated); got != 2 {
		t.Fatalf("expected 2 label sets, got %d", got)
	}
}

func TestCRMMetricsNilSafe(t *testing.T) {
	var m *CRMMetrics
	m.ObserveCreated("widget")
	m.ObserveTransition("Lost")
	m.ObserveCache("miss")
	m.ObserveLatency("list", 0.1)
}

func TestCRMMetricsFamilyNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCRMMetrics(reg)
	m.ObserveCache("miss")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}
	fam, ok := byName["crm_availability_cache_total"]
	if !ok {
		t.Fatalf("missing availability cache family, got %v", byName)
	}
	if fam.GetType() != dto.MetricType_COUNTER {
		t.Fatalf("expected counter, got %v", fam.GetType())
	}
	labels := fam.GetMetric()[0].GetLabel()
	if len(labels) != 1 || labels[0].GetName() != "result" || labels[0].GetValue() != "miss" {
		t.Fatalf("unexpected labels %v", labels)
	}
}
