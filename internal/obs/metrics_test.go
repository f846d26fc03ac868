package obs

import "testing"

func TestNewMetricsIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.VectorInserts.Inc()
	families, err := a.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one metric family registered")
	}

	// Constructing a second Metrics must not panic on duplicate
	// registration against the process-default registerer, since each
	// instance owns a private *prometheus.Registry.
	b.VectorInserts.Inc()
}
