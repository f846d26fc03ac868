package edgevec

import (
	"sync"

	"github.com/edgevec/edgevec/internal/hnsw"
	"github.com/edgevec/edgevec/internal/memmon"
	"github.com/edgevec/edgevec/internal/metadata"
	"github.com/edgevec/edgevec/internal/obs"
	"github.com/edgevec/edgevec/internal/quant"
	"github.com/edgevec/edgevec/internal/sparse"
	"github.com/edgevec/edgevec/internal/vecstore"
	"github.com/edgevec/edgevec/internal/verrors"
)

// Index is the façade's top-level type: one vector collection, owning
// every internal component and a single shared-exclusive lock (mutating
// calls take mu.Lock, reads take mu.RLock; every internal/* package itself
// carries no lock of its own).
//
// Grounded on libravdb/collection.go's Collection type.
type Index struct {
	mu sync.RWMutex

	cfg Config

	store    *vecstore.Store
	graph    *hnsw.Graph
	useGraph bool
	meta     *metadata.Store
	sparse   *sparse.Store
	hist     *filterHistogramsHolder

	bqCodec *quant.BQCodec

	mon     *memmon.Monitor
	metrics *obs.Metrics

	wal *walState

	closed bool
}

// New constructs an Index: dimensions is required, every other option has
// a default drawn from internal/hnsw.DefaultConfig plus this package's own
// defaults.
func New(opts ...Option) (*Index, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	store, err := vecstore.New(cfg.Dimensions, cfg.SnowflakeNode)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		cfg:     cfg,
		store:   store,
		meta:    metadata.New(),
		sparse:  sparse.NewStore(),
		hist:    newFilterHistogramsHolder(),
		mon:     memmon.New(cfg.MemoryBudgetBytes),
		metrics: obs.NewMetrics(),
	}

	utilMetric, ok := cfg.Metric.toUtil()
	if ok {
		hcfg := hnsw.DefaultConfig(utilMetric)
		hcfg.M, hcfg.M0, hcfg.EfConstruction, hcfg.EfSearch = cfg.M, cfg.M0, cfg.EfConstruction, cfg.EfSearch
		if cfg.Seed != 0 {
			hcfg.Seed = uint64(cfg.Seed)
		}
		graph, err := hnsw.New(store, hcfg)
		if err != nil {
			return nil, err
		}
		idx.graph = graph
		idx.useGraph = true
	} else {
		// MetricHamming: no continuous embedding space is assumed, so
		// there is no graph to build. Ranking happens by brute-force
		// Hamming distance over BQ payloads alone (see search.go).
		if !cfg.EnableBQ {
			return nil, verrors.InvalidVector("metric hamming requires enable_bq")
		}
	}

	if cfg.EnableBQ {
		codec, err := quant.NewBQCodec(cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		idx.bqCodec = codec
	}
	if cfg.EnableSQ8 {
		store.EnableSQ8()
	}
	if cfg.EnableBQ {
		store.EnableBQ()
	}

	wal, err := openWAL(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	idx.wal = wal

	return idx, nil
}

// Insert implements insert(v[, meta]) -> VectorId.
func (idx *Index) Insert(vector []float32, meta map[string]metadata.Value) (uint64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return 0, verrors.Internal("index is closed")
	}

	id, err := idx.store.Push(vector)
	if err != nil {
		return 0, err
	}
	slot, _ := idx.store.Slot(id)

	if idx.useGraph {
		if _, err := idx.graph.Insert(id, vector); err != nil {
			return 0, err
		}
	}
	if idx.cfg.EnableSQ8 {
		bytes, params, err := quant.EncodeSQ8(vector)
		if err != nil {
			return 0, err
		}
		idx.store.SetSQ8(slot, bytes, params)
	}
	if idx.cfg.EnableBQ {
		if idx.bqCodec.ShouldRetrain(idx.store.LiveCount()) {
			idx.retrainBQLocked()
		}
		idx.store.SetBQ(slot, idx.bqCodec.Encode(vector))
	}
	if len(meta) > 0 {
		idx.meta.Put(id, meta)
		idx.hist.observe(meta)
	}

	idx.appendWALInsert(id, vector)
	idx.metrics.VectorInserts.Inc()
	idx.refreshMemoryLocked()
	return uint64(id), nil
}

// InsertBatch implements insert_batch(vectors[, metas, opts]), enforcing a
// dimension-scaled per-call cap.
func (idx *Index) InsertBatch(vectors [][]float32, metas []map[string]metadata.Value) ([]uint64, error) {
	if len(vectors) == 0 {
		return nil, verrors.EmptyBatch()
	}
	if cap := batchCapForDimension(idx.cfg.Dimensions); len(vectors) > cap {
		return nil, verrors.CapacityExceeded(uint64(len(vectors)), uint64(cap))
	}
	ids := make([]uint64, 0, len(vectors))
	for i, v := range vectors {
		var m map[string]metadata.Value
		if metas != nil && i < len(metas) {
			m = metas[i]
		}
		id, err := idx.Insert(v, m)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (idx *Index) retrainBQLocked() {
	vectors := make([][]float32, 0, idx.store.LiveCount())
	idx.store.IterLive(func(_ vecstore.VectorId, v []float32) bool {
		vectors = append(vectors, v)
		return true
	})
	idx.bqCodec.Retrain(vectors)
}

// SoftDelete implements soft_delete(id) -> bool.
func (idx *Index) SoftDelete(id uint64) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return false, verrors.Internal("index is closed")
	}
	vid := vecstore.VectorId(id)
	slot, ok := idx.store.Slot(vid)
	if !ok {
		return false, verrors.UnknownId(id)
	}
	if err := idx.store.MarkDeleted(vid); err != nil {
		return false, err
	}
	if idx.useGraph {
		idx.graph.SoftDelete(slot)
	}
	idx.sparse.MarkDeleted(vid)
	for attr, val := range idx.meta.Get(vid) {
		idx.hist.h.Forget(attr, val)
	}
	idx.meta.Remove(vid)
	idx.appendWALDelete(vid)
	idx.metrics.VectorDeletes.Inc()
	idx.refreshMemoryLocked()
	return true, nil
}

// SoftDeleteBatch implements soft_delete_batch(ids).
func (idx *Index) SoftDeleteBatch(ids []uint64) (int, error) {
	count := 0
	for _, id := range ids {
		ok, err := idx.SoftDelete(id)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// LiveCount implements live_count().
func (idx *Index) LiveCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.LiveCount()
}

// TombstoneCount implements tombstone_count().
func (idx *Index) TombstoneCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.TombstoneCount()
}

// CompactionWarning implements compaction_warning(): true once tombstones
// exceed 20% of total nodes, mirroring internal/hnsw.CompactionWarning's
// default threshold.
func (idx *Index) CompactionWarning() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.useGraph {
		warn := idx.graph.CompactionWarning(0.2)
		idx.metrics.SetCompactionWarningGauge(warn)
		return warn
	}
	total := idx.store.TotalCount()
	if total == 0 {
		return false
	}
	warn := float64(idx.store.TombstoneCount())/float64(total) > 0.2
	idx.metrics.SetCompactionWarningGauge(warn)
	return warn
}

// Compact implements compact(): rebuilds the graph and vector store to
// the live subset, renumbering NodeIds contiguously while VectorIds stay
// stable.
func (idx *Index) Compact() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return verrors.Internal("index is closed")
	}
	if idx.useGraph {
		idx.graph.Compact()
	}
	idx.store.Compact()
	idx.appendWALCompactMarker()
	idx.metrics.CompactionsTotal.Inc()
	idx.refreshMemoryLocked()
	return nil
}

// Close releases any open persistence handles. Safe to call multiple times.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	if idx.wal != nil && idx.wal.writer != nil {
		return idx.wal.writer.Close()
	}
	return nil
}

// vecstoreID converts a façade-level uint64 VectorId back into
// vecstore.VectorId at package boundaries.
func vecstoreID(id uint64) vecstore.VectorId { return vecstore.VectorId(id) }

func (idx *Index) refreshMemoryLocked() {
	idx.mon.SetCounts(uint64(idx.store.TotalCount()), uint64(idx.store.LiveCount()), uint64(idx.store.TombstoneCount()))
	idx.mon.SetBytes(idx.estimateBytesLocked())
	idx.metrics.MemoryPressure.Set(float64(idx.mon.Pressure()))
}

func (idx *Index) estimateBytesLocked() memmon.ComponentBytes {
	dims := uint64(idx.cfg.Dimensions)
	live := uint64(idx.store.LiveCount())
	var b memmon.ComponentBytes
	b.F32 = live * dims * 4
	if idx.cfg.EnableSQ8 {
		b.SQ8 = live * dims
	}
	if idx.cfg.EnableBQ {
		b.BQ = live * ((dims + 7) / 8)
	}
	if idx.useGraph {
		b.Graph = live * 16
	}
	return b
}
