package memmon

import "testing"

func TestPressureUnboundedBudgetIsAlwaysOK(t *testing.T) {
	m := New(0)
	m.SetBytes(ComponentBytes{F32: 1 << 40})
	if p := m.Pressure(); p != OK {
		t.Fatalf("Pressure() = %v, want OK for zero budget", p)
	}
}

func TestPressureTiers(t *testing.T) {
	const budget = 1000
	cases := []struct {
		usage uint64
		want  PressureLevel
	}{
		{100, OK},
		{500, Warn},
		{750, High},
		{900, Critical},
		{1000, Critical},
	}
	for _, c := range cases {
		m := New(budget)
		m.SetBytes(ComponentBytes{F32: c.usage})
		if got := m.Pressure(); got != c.want {
			t.Fatalf("usage=%d: Pressure() = %v, want %v", c.usage, got, c.want)
		}
	}
}

func TestPreferBinaryQuantizationTracksHighTier(t *testing.T) {
	m := New(1000)
	m.SetBytes(ComponentBytes{F32: 600})
	if m.PreferBinaryQuantization() {
		t.Fatalf("should not prefer BQ at Warn tier")
	}
	m.SetBytes(ComponentBytes{F32: 800})
	if !m.PreferBinaryQuantization() {
		t.Fatalf("should prefer BQ at High tier")
	}
}

func TestSnapshotReportsCounts(t *testing.T) {
	m := New(1000)
	m.SetCounts(10, 8, 2)
	snap := m.Snapshot()
	if snap.Count != 10 || snap.LiveCount != 8 || snap.Tombstones != 2 {
		t.Fatalf("unexpected snapshot counts: %+v", snap)
	}
}
