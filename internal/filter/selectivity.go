package filter

import "github.com/cespare/xxhash/v2"

// Histograms holds optional cheap per-attribute value-frequency counts used
// to sharpen selectivity estimates. Attribute names are hashed with
// xxhash/v2 to key the bucket table, keeping the histogram's memory
// footprint independent of attribute-name length.
type Histograms struct {
	buckets map[uint64]*attrHistogram
}

type attrHistogram struct {
	counts map[any]int
	total  int
}

// NewHistograms returns an empty histogram set.
func NewHistograms() *Histograms {
	return &Histograms{buckets: make(map[uint64]*attrHistogram)}
}

func bucketKey(attr string) uint64 {
	return xxhash.Sum64String(attr)
}

// Observe records one occurrence of attr=value, called once per live
// vector at insert and load time to keep the histogram current.
func (h *Histograms) Observe(attr string, value any) {
	key := bucketKey(attr)
	b, ok := h.buckets[key]
	if !ok {
		b = &attrHistogram{counts: make(map[any]int)}
		h.buckets[key] = b
	}
	b.counts[value]++
	b.total++
}

// Forget removes one occurrence of attr=value (called on soft delete to
// keep estimates from drifting upward forever).
func (h *Histograms) Forget(attr string, value any) {
	key := bucketKey(attr)
	b, ok := h.buckets[key]
	if !ok {
		return
	}
	if b.counts[value] > 0 {
		b.counts[value]--
		b.total--
	}
}

func (h *Histograms) frequency(attr string, value any) (float64, bool) {
	if h == nil {
		return 0, false
	}
	b, ok := h.buckets[bucketKey(attr)]
	if !ok || b.total == 0 {
		return 0, false
	}
	return float64(b.counts[value]) / float64(b.total), true
}

// EstimateSelectivity estimates, in [0, 1], the fraction of live vectors
// expr is expected to match, used by the facade/HNSW search to choose a
// pre-filter vs. post-filter plan.
func EstimateSelectivity(expr Node, hist *Histograms) float64 {
	switch e := expr.(type) {
	case Comparison:
		if e.Op == OpEq {
			if f, ok := hist.frequency(e.Attr, canonicalize(e.Val)); ok {
				return f
			}
			return 0.1
		}
		return 0.5

	case Between:
		return 0.5

	case InSet:
		s := 0.0
		for _, v := range e.Values {
			if f, ok := hist.frequency(e.Attr, canonicalize(v)); ok {
				s += f
			} else {
				s += 0.1
			}
		}
		if s > 1 {
			s = 1
		}
		if e.Negate {
			return 1 - s
		}
		return s

	case NullCheck:
		return 0.1

	case StringMatch:
		return 0.2

	case And:
		return EstimateSelectivity(e.Left, hist) * EstimateSelectivity(e.Right, hist)

	case Or:
		a := EstimateSelectivity(e.Left, hist)
		b := EstimateSelectivity(e.Right, hist)
		return a + b - a*b

	case Not:
		return 1 - EstimateSelectivity(e.Expr, hist)

	default:
		return 1.0
	}
}

// canonicalize normalizes literal numeric types to float64 so histogram
// lookups agree regardless of whether a value arrived as float32/int/int64.
func canonicalize(v any) any {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}
