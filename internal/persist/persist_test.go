package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Header: Header{Dims: 4, Metric: WireMetricL2, Flags: FlagMetaPresent, Count: 2, LiveCount: 2, EntryNode: 0, TopLayer: 0},
		Sections: []Section{
			{ID: SectionF32, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
			{ID: SectionNodes, Payload: bytes.Repeat([]byte{0xAB}, 32)},
			{ID: SectionMetadata, Payload: []byte(`{"a":1}`)},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.evec")
	snap := sampleSnapshot()

	if err := Write(path, snap); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Header.Dims != 4 || got.Header.Count != 2 || got.Header.LiveCount != 2 {
		t.Fatalf("header mismatch: %+v", got.Header)
	}
	if len(got.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got.Sections))
	}
	for i, s := range got.Sections {
		if !bytes.Equal(s.Payload, snap.Sections[i].Payload) {
			t.Fatalf("section %d payload mismatch", i)
		}
	}
}

func TestSnapshotRewriteIsAtomicAndCleansUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.evec")
	if err := Write(path, sampleSnapshot()); err != nil {
		t.Fatalf("initial Write: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// No write failure is simulated (permission-denied paths aren't
	// portable in test sandboxes); instead a successful second write must
	// leave byte-identical contents at the final path and no temp file
	// behind, as write-then-rename promises.
	if err := Write(path, sampleSnapshot()); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("rewriting identical snapshot produced different bytes")
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("leftover temp files: %v", matches)
	}
}

func TestSnapshotRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.evec")
	if err := Write(path, sampleSnapshot()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	data[0] = 'X'
	os.WriteFile(path, data, 0o644)

	if _, err := Read(path); err == nil {
		t.Fatalf("expected error for corrupted magic")
	}
}

func TestSnapshotDetectsChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.evec")
	if err := Write(path, sampleSnapshot()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	// Flip a byte well past the header+table, inside the last section's
	// payload region.
	data[len(data)-5] ^= 0xFF
	os.WriteFile(path, data, 0o644)

	if _, err := Read(path); err == nil {
		t.Fatalf("expected checksum mismatch error")
	}
}

func TestWALAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Append(OpInsert, []byte("insert-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := w.Append(OpDelete, []byte("delete-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records, validTo, err := Replay(path, 0)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Op != OpInsert || string(records[0].Payload) != "insert-1" {
		t.Fatalf("unexpected record 0: %+v", records[0])
	}
	if records[1].Op != OpDelete || string(records[1].Payload) != "delete-1" {
		t.Fatalf("unexpected record 1: %+v", records[1])
	}
	stat, _ := os.Stat(path)
	if validTo != stat.Size() {
		t.Fatalf("validTo %d != file size %d for a fully intact segment", validTo, stat.Size())
	}
}

func TestWALTornTailTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Append(OpInsert, []byte("insert-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := w.Append(OpInsert, []byte("insert-2")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	torn := data[:len(data)-3]
	if err := os.WriteFile(path, torn, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, validTo, err := Replay(path, 0)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected torn second record to be dropped, got %d records", len(records))
	}
	if string(records[0].Payload) != "insert-1" {
		t.Fatalf("unexpected surviving record: %+v", records[0])
	}

	if err := Truncate(path, validTo); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	w2, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter after truncate: %v", err)
	}
	if _, err := w2.Append(OpInsert, []byte("insert-3")); err != nil {
		t.Fatalf("Append after truncate: %v", err)
	}
	w2.Close()

	records, _, err = Replay(path, 0)
	if err != nil {
		t.Fatalf("Replay after repair: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after repair+append, got %d", len(records))
	}
	if string(records[1].Payload) != "insert-3" {
		t.Fatalf("unexpected second record after repair: %+v", records[1])
	}
}

func TestWALPositionRoundTrip(t *testing.T) {
	p := Position{Segment: 7, Offset: 12345}
	decoded, err := DecodeWALPosition(EncodeWALPosition(p))
	if err != nil {
		t.Fatalf("DecodeWALPosition: %v", err)
	}
	if decoded != p {
		t.Fatalf("position roundtrip mismatch: got %+v, want %+v", decoded, p)
	}
}

func TestCopyChunkedDegradesAtTail(t *testing.T) {
	var buf bytes.Buffer
	src := []byte("hello world, this is a chunked payload")
	if err := copyChunked(&buf, src, 8); err != nil {
		t.Fatalf("copyChunked: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), src) {
		t.Fatalf("chunked copy mismatch")
	}
}
