// Package memmon implements the memory pressure monitor: it tracks
// per-component byte usage, live/tombstone counts, and the host process
// heap, then derives a caller-budget-relative pressure level that
// adaptive hybrid search consults to pick between BQ, SQ8 and F32 paths.
//
// Grounded on internal/memory/monitor.go's MemorySnapshot/runtime.MemStats
// sampling and trend calculation, narrowed from an unbounded history
// buffer to a single current-snapshot-plus-budget model. Like every other
// internal/* package, Monitor carries no mutex of its own — the façade
// owns all synchronization (see the edgevec.Index doc comment).
package memmon

import "runtime"

// PressureLevel is the four-tier pressure signal the monitor reports.
type PressureLevel int

const (
	OK PressureLevel = iota
	Warn
	High
	Critical
)

func (p PressureLevel) String() string {
	switch p {
	case OK:
		return "ok"
	case Warn:
		return "warn"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Pressure tier thresholds as a fraction of the caller-supplied budget.
// These follow conventional quartile-style capacity-planning bands
// (comfortable below half, cautionary in the back half, urgent past
// ninety percent).
const (
	warnThreshold     = 0.50
	highThreshold     = 0.75
	criticalThreshold = 0.90
)

// ComponentBytes breaks down tracked allocation by the component that
// owns it.
type ComponentBytes struct {
	F32       uint64 // internal/vecstore raw F32 vectors
	SQ8       uint64 // internal/quant SQ8 payloads
	BQ        uint64 // internal/quant BQ payloads
	Graph     uint64 // internal/hnsw packed nodes + neighbor pool
	Metadata  uint64 // internal/metadata attribute maps
	Sparse    uint64 // internal/sparse CSR rows
}

// Total sums every tracked component.
func (c ComponentBytes) Total() uint64 {
	return c.F32 + c.SQ8 + c.BQ + c.Graph + c.Metadata + c.Sparse
}

// Snapshot is a point-in-time reading of tracked usage plus process heap.
type Snapshot struct {
	Count      uint64
	LiveCount  uint64
	Tombstones uint64
	Bytes      ComponentBytes
	HeapInuse  uint64
}

// Monitor accumulates ComponentBytes counters as components report their
// own usage and classifies pressure against a fixed budget.
type Monitor struct {
	budgetBytes uint64
	bytes       ComponentBytes
	count       uint64
	liveCount   uint64
	tombstones  uint64
}

// New returns a monitor against budgetBytes; 0 means unlimited (always OK).
func New(budgetBytes uint64) *Monitor {
	return &Monitor{budgetBytes: budgetBytes}
}

// SetCounts updates the tracked total/live/tombstone counts, typically
// called after every insert, soft_delete, or compact.
func (m *Monitor) SetCounts(total, live, tombstones uint64) {
	m.count, m.liveCount, m.tombstones = total, live, tombstones
}

// SetBytes replaces the tracked per-component byte usage wholesale; call
// sites recompute this from their own authoritative sizes (len(store.f32)
// * dims * 4, etc.) rather than incrementally tracking deltas, since
// compaction and quantization coverage both change the totals non-locally.
func (m *Monitor) SetBytes(b ComponentBytes) { m.bytes = b }

// Snapshot reports the monitor's current view, including a fresh sample
// of the host process heap via runtime.ReadMemStats.
func (m *Monitor) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Snapshot{
		Count:      m.count,
		LiveCount:  m.liveCount,
		Tombstones: m.tombstones,
		Bytes:      m.bytes,
		HeapInuse:  ms.HeapInuse,
	}
}

// Pressure classifies current usage against the configured budget. A
// zero budget means no limit was supplied, so pressure is always OK.
func (m *Monitor) Pressure() PressureLevel {
	if m.budgetBytes == 0 {
		return OK
	}
	ratio := float64(m.bytes.Total()) / float64(m.budgetBytes)
	switch {
	case ratio >= criticalThreshold:
		return Critical
	case ratio >= highThreshold:
		return High
	case ratio >= warnThreshold:
		return Warn
	default:
		return OK
	}
}

// PreferBinaryQuantization reports whether hybrid_search(mode=adaptive)
// should route through the BQ path rather than SQ8/F32, favoring the
// cheapest representation once memory usage passes the High tier.
func (m *Monitor) PreferBinaryQuantization() bool {
	return m.Pressure() >= High
}

// PreferScalarQuantization reports whether hybrid_search(mode=adaptive)
// should route through the SQ8 path rather than full F32, the mid-pressure
// tier between PreferBinaryQuantization's threshold and OK.
func (m *Monitor) PreferScalarQuantization() bool {
	return m.Pressure() >= Warn
}
