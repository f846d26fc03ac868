package edgevec

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/edgevec/edgevec/internal/hnsw"
	"github.com/edgevec/edgevec/internal/memmon"
	"github.com/edgevec/edgevec/internal/metadata"
	"github.com/edgevec/edgevec/internal/obs"
	"github.com/edgevec/edgevec/internal/persist"
	"github.com/edgevec/edgevec/internal/quant"
	"github.com/edgevec/edgevec/internal/sparse"
	"github.com/edgevec/edgevec/internal/vecstore"
	"github.com/edgevec/edgevec/internal/verrors"
)

// walState bundles the open WAL writer with the snapshot base path
// persistence was configured against. Left nil, an Index runs purely
// in-memory and every appendWAL* call below is a no-op.
type walState struct {
	writer *persist.Writer
	path   string
}

func walPathFor(storagePath string) string {
	return filepath.Join(storagePath, "wal.log")
}

func snapshotPathFor(storagePath string) string {
	return filepath.Join(storagePath, "snapshot.evec")
}

func openWAL(storagePath string) (*walState, error) {
	if storagePath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, verrors.IoError("mkdir", err)
	}
	w, err := persist.OpenWriter(walPathFor(storagePath))
	if err != nil {
		return nil, err
	}
	return &walState{writer: w, path: storagePath}, nil
}

// appendWALInsert records an insert as VectorId (u64 LE) followed by the
// raw F32 vector. No-op when persistence isn't configured.
func (idx *Index) appendWALInsert(id vecstore.VectorId, vector []float32) {
	if idx.wal == nil {
		return
	}
	payload := make([]byte, 8+4*len(vector))
	binary.LittleEndian.PutUint64(payload[0:8], uint64(id))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(payload[8+4*i:12+4*i], mathFloat32bits(v))
	}
	if _, err := idx.wal.writer.Append(persist.OpInsert, payload); err == nil {
		idx.metrics.WALAppends.Inc()
	}
}

// appendWALDelete records a soft delete as a bare VectorId payload.
func (idx *Index) appendWALDelete(id vecstore.VectorId) {
	if idx.wal == nil {
		return
	}
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, uint64(id))
	if _, err := idx.wal.writer.Append(persist.OpDelete, payload); err == nil {
		idx.metrics.WALAppends.Inc()
	}
}

// appendWALCompactMarker records that a compaction happened at this point
// in the log, so a future replay knows the preceding records' slot-based
// state no longer applies (VectorIds remain valid; NodeIds don't).
func (idx *Index) appendWALCompactMarker() {
	if idx.wal == nil {
		return
	}
	if _, err := idx.wal.writer.Append(persist.OpCompactMarker, nil); err == nil {
		idx.metrics.WALAppends.Inc()
	}
}

// Save implements save(target): writes a full snapshot of the index to
// target, recording the WAL's current offset so Load replays only the
// records appended after it; the WAL itself is left as is. Grounded
// on internal/index/hnsw/persistence.go's whole-graph serialization.
func (idx *Index) Save(target string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return verrors.Internal("index is closed")
	}

	snap := persist.Snapshot{
		Header: persist.Header{
			Dims:      uint32(idx.cfg.Dimensions),
			Metric:    wireMetricFor(idx.cfg.Metric),
			Count:     uint64(idx.store.TotalCount()),
			LiveCount: uint64(idx.store.LiveCount()),
		},
	}
	if idx.cfg.EnableSQ8 {
		snap.Header.Flags |= persist.FlagSQ8Present
	}
	if idx.cfg.EnableBQ {
		snap.Header.Flags |= persist.FlagBQPresent
	}
	if idx.meta.Len() > 0 {
		snap.Header.Flags |= persist.FlagMetaPresent
	}

	slots := idx.store.ExportSlots()
	snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionF32, Payload: encodeF32Section(slots, idx.cfg.Dimensions)})
	if idx.cfg.EnableSQ8 {
		snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionSQ8, Payload: encodeSQ8Section(slots)})
	}
	if idx.cfg.EnableBQ {
		snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionBQ, Payload: encodeBQSection(slots)})
	}

	tombBytes, err := encodeTombstones(idx.store.ExportTombstones())
	if err != nil {
		return err
	}
	snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionTombstones, Payload: tombBytes})

	if idx.useGraph {
		entry, topLayer, _ := idx.graph.EntryPoint()
		snap.Header.EntryNode = entry
		snap.Header.TopLayer = uint8(topLayer)
		snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionNodes, Payload: hnsw.EncodeNodes(idx.graph.ExportNodes())})
		snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionPool, Payload: encodeUint32Slice(idx.graph.ExportPool())})
	}

	if idx.meta.Len() > 0 {
		metaBytes, err := json.Marshal(idx.meta.All())
		if err != nil {
			return verrors.Internal("marshal metadata section: " + err.Error())
		}
		snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionMetadata, Payload: metaBytes})
	}

	var walPos persist.Position
	if idx.wal != nil {
		walPos = persist.Position{Offset: idx.wal.writer.Offset()}
	}
	snap.Sections = append(snap.Sections, persist.Section{ID: persist.SectionWALPos, Payload: persist.EncodeWALPosition(walPos)})

	if err := persist.Write(snapshotPathFor(target), snap); err != nil {
		return err
	}
	return nil
}

// Load implements load(target) -> Index: reads a snapshot written by Save
// and replays any WAL records recorded after it (inserts and deletes).
// Metadata is restored as of the snapshot only: replayed inserts come back
// without metadata. Sparse rows are in neither the snapshot nor the WAL and
// are not restored. The returned Index has
// persistence enabled against target, matching New(WithStoragePath(target)).
func Load(target string, opts ...Option) (*Index, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	cfg.StoragePath = target

	snap, err := persist.Read(snapshotPathFor(target))
	if err != nil {
		return nil, err
	}
	cfg.Dimensions = int(snap.Header.Dims)
	cfg.Metric = metricFromWire(snap.Header.Metric)
	cfg.EnableSQ8 = snap.Header.Flags&persist.FlagSQ8Present != 0
	cfg.EnableBQ = snap.Header.Flags&persist.FlagBQPresent != 0
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	sections := make(map[uint16][]byte, len(snap.Sections))
	for _, s := range snap.Sections {
		sections[s.ID] = s.Payload
	}

	slots, err := decodeF32Section(sections[persist.SectionF32], cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	if cfg.EnableSQ8 {
		if err := decodeSQ8SectionInto(slots, sections[persist.SectionSQ8], cfg.Dimensions); err != nil {
			return nil, err
		}
	}
	if cfg.EnableBQ {
		if err := decodeBQSectionInto(slots, sections[persist.SectionBQ]); err != nil {
			return nil, err
		}
	}
	tomb, err := decodeTombstones(sections[persist.SectionTombstones])
	if err != nil {
		return nil, err
	}

	store, err := vecstore.Restore(cfg.Dimensions, cfg.SnowflakeNode, slots, tomb, cfg.EnableSQ8, cfg.EnableBQ)
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

	if metaBytes, ok := sections[persist.SectionMetadata]; ok {
		attrs := make(map[vecstore.VectorId]map[string]metadata.Value)
		if err := json.Unmarshal(metaBytes, &attrs); err != nil {
			return nil, verrors.Corruption("metadata", "malformed metadata section: "+err.Error())
		}
		idx.meta = metadata.LoadAll(attrs)
		store.IterLive(func(id vecstore.VectorId, _ []float32) bool {
			idx.hist.observe(idx.meta.Get(id))
			return true
		})
	}

	utilMetric, ok := cfg.Metric.toUtil()
	if ok {
		hcfg := hnsw.DefaultConfig(utilMetric)
		hcfg.M, hcfg.M0, hcfg.EfConstruction, hcfg.EfSearch = cfg.M, cfg.M0, cfg.EfConstruction, cfg.EfSearch
		if cfg.Seed != 0 {
			hcfg.Seed = uint64(cfg.Seed)
		}
		nodesBuf, hasNodes := sections[persist.SectionNodes]
		poolBuf := sections[persist.SectionPool]
		if hasNodes {
			nodes, err := hnsw.DecodeNodes(nodesBuf, len(nodesBuf)/16)
			if err != nil {
				return nil, err
			}
			pool := decodeUint32Slice(poolBuf)
			graph, err := hnsw.Load(store, hcfg, nodes, pool, snap.Header.EntryNode, int(snap.Header.TopLayer), len(nodes) > 0)
			if err != nil {
				return nil, err
			}
			idx.graph = graph
		} else {
			graph, err := hnsw.New(store, hcfg)
			if err != nil {
				return nil, err
			}
			idx.graph = graph
		}
		idx.useGraph = true
	} else if !cfg.EnableBQ {
		return nil, verrors.InvalidVector("metric hamming requires enable_bq")
	}

	if cfg.EnableBQ {
		// The BQ codec's centering thresholds aren't part of the snapshot
		// (only the already-encoded bit vectors are); retrain immediately
		// against the restored live set so query-time encoding stays
		// consistent with what's stored. Existing BQ bytes are left as-is
		// since re-encoding every vector on load would defeat the point of
		// caching them.
		codec, err := quant.NewBQCodec(cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		var liveVectors [][]float32
		store.IterLive(func(_ vecstore.VectorId, v []float32) bool {
			liveVectors = append(liveVectors, v)
			return true
		})
		codec.Retrain(liveVectors)
		idx.bqCodec = codec
	}

	wal, err := openWAL(target)
	if err != nil {
		return nil, err
	}
	idx.wal = wal

	if walPos, ok := sections[persist.SectionWALPos]; ok && wal != nil {
		pos, err := persist.DecodeWALPosition(walPos)
		if err != nil {
			return nil, err
		}
		if err := idx.replayWALSince(pos.Offset); err != nil {
			return nil, err
		}
	}

	idx.refreshMemoryLocked()
	return idx, nil
}

// replayWALSince applies every record written after the snapshot's WAL
// position, repairing a torn tail first if Replay detects one.
func (idx *Index) replayWALSince(fromOffset uint64) error {
	records, validTo, err := persist.Replay(walPathFor(idx.cfg.StoragePath), fromOffset)
	if err != nil {
		return err
	}
	if uint64(validTo) != idx.wal.writer.Offset() {
		// A torn tail: repair it, then reopen the writer so its internal
		// offset tracking reflects the truncated file rather than the
		// stale (too-large) size observed when it was first opened.
		if err := idx.wal.writer.Close(); err != nil {
			return err
		}
		if err := persist.Truncate(walPathFor(idx.cfg.StoragePath), validTo); err != nil {
			return err
		}
		writer, err := persist.OpenWriter(walPathFor(idx.cfg.StoragePath))
		if err != nil {
			return err
		}
		idx.wal.writer = writer
	}
	for _, rec := range records {
		switch rec.Op {
		case persist.OpInsert:
			id := vecstore.VectorId(binary.LittleEndian.Uint64(rec.Payload[0:8]))
			vector := decodeF32Vector(rec.Payload[8:], idx.cfg.Dimensions)
			idx.replayInsert(id, vector)
		case persist.OpDelete:
			id := vecstore.VectorId(binary.LittleEndian.Uint64(rec.Payload[0:8]))
			idx.store.MarkDeleted(id)
			if idx.useGraph {
				if slot, ok := idx.store.Slot(id); ok {
					idx.graph.SoftDelete(slot)
				}
			}
		case persist.OpCompactMarker:
			// Informational only on replay: the snapshot already reflects
			// slot numbering as of its own save, and no further compaction
			// state needs reconstructing.
		}
	}
	return nil
}

// replayInsert re-applies an insert recorded in the WAL after the loaded
// snapshot was taken, pushing it into the already-restored store/graph
// exactly as Insert would, without re-appending to the WAL.
func (idx *Index) replayInsert(id vecstore.VectorId, vector []float32) {
	if _, ok := idx.store.Slot(id); ok {
		return
	}
	slot, err := idx.store.PushWithId(id, vector)
	if err != nil {
		return
	}
	if idx.useGraph {
		if _, err := idx.graph.Insert(id, vector); err != nil {
			return
		}
	}
	if idx.cfg.EnableSQ8 {
		if bytes, params, err := quant.EncodeSQ8(vector); err == nil {
			idx.store.SetSQ8(slot, bytes, params)
		}
	}
	if idx.cfg.EnableBQ {
		idx.store.SetBQ(slot, idx.bqCodec.Encode(vector))
	}
}
