package hnsw

import (
	"math"
	"math/rand"

	"github.com/edgevec/edgevec/internal/util"
	"github.com/edgevec/edgevec/internal/vecstore"
	"github.com/edgevec/edgevec/internal/verrors"
)

// Config holds the HNSW construction parameters, validated once at
// collection creation. Grounded on internal/index/hnsw/hnsw.go's Config.
type Config struct {
	M              int
	M0             int
	EfConstruction int
	EfSearch       int
	Metric         util.Metric
	Seed           uint64
}

// DefaultConfig mirrors the defaults named in the configuration surface
// (m=16, m0=2m, ef_construction=200, ef_search=50).
func DefaultConfig(metric util.Metric) Config {
	return Config{M: 16, M0: 32, EfConstruction: 200, EfSearch: 50, Metric: metric}
}

func (c Config) validate() error {
	if c.M <= 0 || c.M0 <= 0 {
		return verrors.Internal("hnsw: M/M0 must be positive")
	}
	if c.EfConstruction <= 0 || c.EfSearch <= 0 {
		return verrors.Internal("hnsw: ef_construction/ef_search must be positive")
	}
	return nil
}

// Graph is the layered proximity graph over a shared vecstore.Store. It
// holds no lock of its own; the facade serializes mutation per the
// shared-exclusive concurrency contract.
type Graph struct {
	cfg   Config
	dist  util.Func
	store *vecstore.Store

	levelMultiplier float64
	rng             *rand.Rand

	nodes       []packedNode
	pool        []uint32 // layer-0 neighbor pool, append-only
	higherLinks map[NodeId][][]uint32

	idToSlot map[vecstore.VectorId]NodeId

	entryPoint NodeId
	hasEntry   bool
	topLayer   int

	tombstones int
}

// New constructs an empty graph over store using cfg.
func New(store *vecstore.Store, cfg Config) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	distFn, err := util.ForMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &Graph{
		cfg:             cfg,
		dist:            distFn,
		store:           store,
		levelMultiplier: 1.0 / math.Log(float64(cfg.M)),
		rng:             rand.New(rand.NewSource(int64(seed))),
		higherLinks:     make(map[NodeId][][]uint32),
		idToSlot:        make(map[vecstore.VectorId]NodeId),
	}, nil
}

// Size returns the number of node slots (including tombstoned), mirroring
// vecstore.TotalCount for this graph.
func (g *Graph) Size() int { return len(g.nodes) }

// TombstoneCount returns the number of tombstoned nodes since the last
// compaction.
func (g *Graph) TombstoneCount() int { return g.tombstones }

// maxM returns the out-degree cap for layer l.
func (g *Graph) maxM(layer int) int {
	if layer == 0 {
		return g.cfg.M0
	}
	return g.cfg.M
}

// randomLevel draws a layer via floor(-ln(U(0,1))/ln(M)), capped to avoid
// pathological levels from an extreme draw.
func (g *Graph) randomLevel() int {
	u := g.rng.Float64()
	if u <= 0 {
		u = 1e-12
	}
	level := int(math.Floor(-math.Log(u) * g.levelMultiplier))
	if level > 32 {
		level = 32
	}
	return level
}

func (g *Graph) vectorAt(n NodeId) []float32 {
	return g.store.VectorAt(n)
}

// distanceToQuery computes the configured metric between query and the
// stored F32 vector for node n.
func (g *Graph) distanceToQuery(query []float32, n NodeId) float32 {
	return g.dist(query, g.vectorAt(n))
}

// layer0Neighbors returns node n's layer-0 neighbor slice.
func (g *Graph) layer0Neighbors(n NodeId) []uint32 {
	pn := &g.nodes[n]
	return g.pool[pn.NeighborOffset : pn.NeighborOffset+uint32(pn.NeighborLen)]
}

// neighborsAt returns node n's neighbor slice at layer, which may be empty.
func (g *Graph) neighborsAt(n NodeId, layer int) []uint32 {
	if layer == 0 {
		return g.layer0Neighbors(n)
	}
	links := g.higherLinks[n]
	idx := layer - 1
	if idx >= len(links) {
		return nil
	}
	return links[idx]
}

// setLayer0Neighbors appends a fresh copy of ids to the pool and repoints
// node n's offset/len at it. The pool is append-only; the old slice (if
// any) is orphaned until Compact rebuilds the pool.
func (g *Graph) setLayer0Neighbors(n NodeId, ids []uint32) {
	offset := uint32(len(g.pool))
	g.pool = append(g.pool, ids...)
	g.nodes[n].NeighborOffset = offset
	g.nodes[n].NeighborLen = uint16(len(ids))
}

func (g *Graph) setNeighborsAt(n NodeId, layer int, ids []uint32) {
	if layer == 0 {
		g.setLayer0Neighbors(n, ids)
		return
	}
	idx := layer - 1
	links := g.higherLinks[n]
	for len(links) <= idx {
		links = append(links, nil)
	}
	cp := make([]uint32, len(ids))
	copy(cp, ids)
	links[idx] = cp
	g.higherLinks[n] = links
}

func (g *Graph) maxLayerOf(n NodeId) int { return int(g.nodes[n].MaxLayer) }

func (g *Graph) isTombstoned(n NodeId) bool { return g.nodes[n].tombstoned() }
