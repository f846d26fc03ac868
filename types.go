// Package edgevec is the embedded ANN vector index façade: it owns one
// instance each of the dense store, HNSW graph, quantization codecs,
// sparse store, persistence engine, memory monitor, metrics, metadata
// store, filter engine, and error model, and exposes a single
// shared-exclusive-locked API described below.
//
// Grounded on libravdb/{database,collection,options,query,types,errors}.go
// throughout: the functional-options configuration pattern, the
// mutex-guarded facade struct with a validated config, and the
// metrics-wrapped insert/search/close lifecycle all carry over from the
// teacher, generalized from a multi-collection key/value style database
// to a single-index-per-value-of-Config library entry point.
package edgevec

import (
	"github.com/edgevec/edgevec/internal/hnsw"
	"github.com/edgevec/edgevec/internal/util"
)

// Metric selects the distance function used for dense search. The wire
// encoding (internal/persist.WireMetric*) is a distinct, stable ordering
// from this in-memory enum.
type Metric int

const (
	MetricL2 Metric = iota
	MetricCosine
	MetricDot
	MetricHamming
)

func (m Metric) toUtil() (util.Metric, bool) {
	switch m {
	case MetricL2:
		return util.L2, true
	case MetricCosine:
		return util.Cosine, true
	case MetricDot:
		return util.InnerProduct, true
	default:
		return 0, false
	}
}

// Config holds new()'s configuration: dimensions is the only required
// field, everything else has a usable default.
type Config struct {
	Dimensions          int
	M                   int
	M0                  int
	EfConstruction      int
	EfSearch            int
	Metric              Metric
	EnableSQ8           bool
	EnableBQ            bool
	MetadataBudgetBytes uint64
	MemoryBudgetBytes   uint64
	Seed                int64
	SnowflakeNode       int64

	// StoragePath, when non-empty, enables durable persistence: a WAL is
	// opened alongside every mutating call, and Save/Load read and write
	// snapshots under this path. Left empty, the index is purely in-memory
	// (appendWAL* calls become no-ops).
	StoragePath string
}

func defaultConfig() Config {
	def := hnsw.DefaultConfig(util.Cosine)
	return Config{
		M:              def.M,
		M0:             def.M0,
		EfConstruction: def.EfConstruction,
		EfSearch:       def.EfSearch,
		Metric:         MetricCosine,
		SnowflakeNode:  1,
	}
}

func (c Config) validate() error {
	if c.Dimensions <= 0 {
		return errDimensionsRequired()
	}
	if c.EnableBQ && c.Dimensions%8 != 0 {
		return errBQRequiresDim8()
	}
	return nil
}

// Result is one hit from a dense search.
type Result struct {
	Id       uint64
	Distance float32
}

// HybridMode selects how hybrid_search combines dense and sparse rankings.
type HybridMode int

const (
	HybridRRF HybridMode = iota
	HybridLinear
	HybridAdaptive
)

// SearchOptions configures a single search call. CandidateBudget, when
// positive, lowers ef and MaxCandidates to at most the budget. On the
// pre-filter brute-force path it caps the number of filter matches scored;
// on the graph path it caps the beam width, not the number of distance
// evaluations. Search returns its best-so-far with truncated=true rather
// than erroring when the pre-filter scan stops at the budget or the
// post-filter widening reaches its cap before k matches; an unfiltered
// graph search never reports truncation.
type SearchOptions struct {
	Ef              int
	Filter          string
	MaxCandidates   int
	CandidateBudget int
}

// batchCapForDimension enforces dimension-scaled insert_batch ceilings,
// falling back to a 100k soft default for dimensions above the named
// bands.
func batchCapForDimension(dims int) int {
	switch {
	case dims <= 128:
		return 100_000
	case dims <= 512:
		return 50_000
	case dims <= 768:
		return 30_000
	case dims <= 1536:
		return 15_000
	default:
		return 100_000
	}
}
