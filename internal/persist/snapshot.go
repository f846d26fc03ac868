package persist

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/edgevec/edgevec/internal/verrors"
)

// Section is one opaque, checksummed payload within a snapshot. The
// section's meaning (F32 vectors, SQ8 bytes, HNSW nodes, ...) is carried
// by ID alone; persist does not interpret payload contents, leaving that
// to the façade package that owns the component each section belongs to.
type Section struct {
	ID      uint16
	Payload []byte
}

// Header is the fixed-size snapshot header written ahead of every section.
type Header struct {
	Dims      uint32
	Metric    uint8
	Flags     uint8
	Count     uint64
	LiveCount uint64
	EntryNode uint32
	TopLayer  uint8
}

// Snapshot is a complete, assembled point-in-time index image.
type Snapshot struct {
	Header   Header
	Sections []Section
}

// Write serializes snap to path via a temp-file-then-rename commit so a
// crash or write error during save leaves the previous snapshot (if any)
// completely intact. Grounded on internal/index/hnsw/persistence.go's
// atomicWrite, with the temp file named via a random UUID rather than a
// fixed ".tmp" suffix so concurrent saves to the same path never collide.
func Write(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return verrors.IoError("mkdir", err)
	}
	tempPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	file, err := os.Create(tempPath)
	if err != nil {
		return verrors.IoError("create temp snapshot", err)
	}

	writeErr := writeSnapshot(file, snap)
	if syncErr := file.Sync(); syncErr != nil && writeErr == nil {
		writeErr = syncErr
	}
	if closeErr := file.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempPath)
		return verrors.IoError("write snapshot", writeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return verrors.IoError("rename snapshot into place", err)
	}
	return nil
}

func writeSnapshot(w io.Writer, snap Snapshot) error {
	var header bytes.Buffer
	header.WriteString(Magic)
	binary.Write(&header, binary.LittleEndian, CurrentVersion)
	binary.Write(&header, binary.LittleEndian, snap.Header.Dims)
	header.WriteByte(snap.Header.Metric)
	header.WriteByte(snap.Header.Flags)
	binary.Write(&header, binary.LittleEndian, snap.Header.Count)
	binary.Write(&header, binary.LittleEndian, snap.Header.LiveCount)
	binary.Write(&header, binary.LittleEndian, snap.Header.EntryNode)
	header.WriteByte(snap.Header.TopLayer)
	for header.Len() < HeaderSize {
		header.WriteByte(0)
	}
	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}

	// Section index table: one entry per section, offsets relative to the
	// start of the sections region (immediately following the table).
	type tableEntry struct {
		id     uint16
		offset uint64
		length uint64
		crc    uint32
	}
	entries := make([]tableEntry, len(snap.Sections))
	var cursor uint64
	for i, s := range snap.Sections {
		entries[i] = tableEntry{id: s.ID, offset: cursor, length: uint64(len(s.Payload)), crc: checksum(s.Payload)}
		cursor += uint64(len(s.Payload))
	}

	var table bytes.Buffer
	binary.Write(&table, binary.LittleEndian, uint32(len(entries)))
	for _, e := range entries {
		binary.Write(&table, binary.LittleEndian, e.id)
		binary.Write(&table, binary.LittleEndian, e.offset)
		binary.Write(&table, binary.LittleEndian, e.length)
		binary.Write(&table, binary.LittleEndian, e.crc)
	}
	if _, err := w.Write(table.Bytes()); err != nil {
		return err
	}

	for _, s := range snap.Sections {
		if err := copyChunked(w, s.Payload, MinChunkSize); err != nil {
			return err
		}
	}
	return nil
}

// Read loads and validates a snapshot written by Write. Every section's
// CRC32C is verified; any mismatch aborts with a Corruption error rather
// than returning a partially materialized snapshot.
func Read(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, verrors.IoError("open snapshot", err)
	}
	defer file.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err != nil {
		return Snapshot{}, verrors.IoError("read magic", err)
	}
	if string(magic) != Magic {
		return Snapshot{}, verrors.Corruption("magic", "unrecognized snapshot magic number")
	}

	var version uint16
	if err := binary.Read(file, binary.LittleEndian, &version); err != nil {
		return Snapshot{}, verrors.IoError("read version", err)
	}
	if version < MinSupportedVersion || version > CurrentVersion {
		return Snapshot{}, verrors.Corruption("version", "unsupported snapshot format version")
	}

	var h Header
	if err := binary.Read(file, binary.LittleEndian, &h.Dims); err != nil {
		return Snapshot{}, verrors.IoError("read header", err)
	}
	metricByte := make([]byte, 2)
	if _, err := io.ReadFull(file, metricByte); err != nil {
		return Snapshot{}, verrors.IoError("read header", err)
	}
	h.Metric, h.Flags = metricByte[0], metricByte[1]
	if err := binary.Read(file, binary.LittleEndian, &h.Count); err != nil {
		return Snapshot{}, verrors.IoError("read header", err)
	}
	if err := binary.Read(file, binary.LittleEndian, &h.LiveCount); err != nil {
		return Snapshot{}, verrors.IoError("read header", err)
	}
	if err := binary.Read(file, binary.LittleEndian, &h.EntryNode); err != nil {
		return Snapshot{}, verrors.IoError("read header", err)
	}
	topLayer := make([]byte, 1)
	if _, err := io.ReadFull(file, topLayer); err != nil {
		return Snapshot{}, verrors.IoError("read header", err)
	}
	h.TopLayer = topLayer[0]

	// Header is fixed-size and zero-padded; skip to HeaderSize.
	consumed := 4 + 2 + 4 + 1 + 1 + 8 + 8 + 4 + 1
	if consumed < HeaderSize {
		if _, err := io.CopyN(io.Discard, file, int64(HeaderSize-consumed)); err != nil {
			return Snapshot{}, verrors.IoError("skip header padding", err)
		}
	}

	var sectionCount uint32
	if err := binary.Read(file, binary.LittleEndian, &sectionCount); err != nil {
		return Snapshot{}, verrors.IoError("read section table", err)
	}
	type tableEntry struct {
		id     uint16
		offset uint64
		length uint64
		crc    uint32
	}
	entries := make([]tableEntry, sectionCount)
	for i := range entries {
		var e tableEntry
		if err := binary.Read(file, binary.LittleEndian, &e.id); err != nil {
			return Snapshot{}, verrors.IoError("read section table", err)
		}
		if err := binary.Read(file, binary.LittleEndian, &e.offset); err != nil {
			return Snapshot{}, verrors.IoError("read section table", err)
		}
		if err := binary.Read(file, binary.LittleEndian, &e.length); err != nil {
			return Snapshot{}, verrors.IoError("read section table", err)
		}
		if err := binary.Read(file, binary.LittleEndian, &e.crc); err != nil {
			return Snapshot{}, verrors.IoError("read section table", err)
		}
		entries[i] = e
	}

	sections := make([]Section, len(entries))
	for i, e := range entries {
		payload, err := readChunked(file, int(e.length), MinChunkSize)
		if err != nil {
			return Snapshot{}, verrors.IoError("read section payload", err)
		}
		if err := verifyChecksum(sectionName(e.id), payload, e.crc); err != nil {
			return Snapshot{}, err
		}
		sections[i] = Section{ID: e.id, Payload: payload}
	}

	return Snapshot{Header: h, Sections: sections}, nil
}

// SectionName returns the human-readable name for a section ID, used by
// error messages and offline inspection tooling.
func SectionName(id uint16) string {
	return sectionName(id)
}

func sectionName(id uint16) string {
	switch id {
	case SectionF32:
		return "f32"
	case SectionSQ8:
		return "sq8"
	case SectionBQ:
		return "bq"
	case SectionNodes:
		return "nodes"
	case SectionPool:
		return "pool"
	case SectionMetadata:
		return "metadata"
	case SectionTombstones:
		return "tombstones"
	case SectionWALPos:
		return "wal_position"
	default:
		return "unknown"
	}
}
