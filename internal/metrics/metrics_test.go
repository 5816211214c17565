// Copyright 2025 Chainanchor

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew_RegistersAllSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 6 {
		t.Fatalf("expected 6 registered series, got %d", len(families))
	}

	m.CandidatesTotal.Inc()
	m.AnchorsEmitted.Add(3)
	m.RequestsFailed.Inc()
	m.GCUnpinnedTotal.Inc()
	m.ReadyPromoted.Add(2)
	m.CycleDuration.Observe(0.5)

	if got := counterValue(t, m.AnchorsEmitted); got != 3 {
		t.Errorf("expected AnchorsEmitted = 3, got %v", got)
	}
	if got := counterValue(t, m.ReadyPromoted); got != 2 {
		t.Errorf("expected ReadyPromoted = 2, got %v", got)
	}
}

func TestNew_DuplicateRegistration_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected MustRegister to panic on duplicate registration")
		}
	}()
	New(reg)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
