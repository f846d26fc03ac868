// Package persist implements the snapshot + write-ahead log durability
// format: a versioned, checksummed binary snapshot plus an append-only
// WAL of post-snapshot mutations. Grounded on
// internal/index/hnsw/{format,persistence}.go for the header/section-table
// layout and atomic write-then-rename commit, and on
// internal/storage/wal/wal.go for the WAL skeleton — whose own
// "// TODO: true implementation, replace json" is resolved here with a
// real binary record format instead of json.Marshal.
package persist

import (
	"hash/crc32"

	"github.com/edgevec/edgevec/internal/verrors"
)

// Magic identifies a snapshot file. Unknown magic is fatal corruption.
const Magic = "EVEC"

// Supported snapshot format versions. 0x0003 predates the metadata
// section; 0x0004 adds it. A loader accepts any version <= CurrentVersion
// and upgrades in memory; writers always emit CurrentVersion.
const (
	VersionNoMetadata   = uint16(0x0003)
	VersionWithMetadata = uint16(0x0004)
	CurrentVersion      = VersionWithMetadata
	MinSupportedVersion = VersionNoMetadata
)

// HeaderSize is the fixed, zero-padded size of the snapshot header.
const HeaderSize = 64

// Section identifiers for the snapshot's section index table.
const (
	SectionF32        uint16 = 1
	SectionSQ8        uint16 = 2
	SectionBQ         uint16 = 3
	SectionNodes      uint16 = 4
	SectionPool       uint16 = 5
	SectionMetadata   uint16 = 6
	SectionTombstones uint16 = 7
	SectionWALPos     uint16 = 8
)

// Flag bits packed into the header's flags byte.
const (
	FlagSQ8Present  uint8 = 1 << 0
	FlagBQPresent   uint8 = 1 << 1
	FlagMetaPresent uint8 = 1 << 2
)

// Metric codes as they appear on the wire (distinct from util.Metric's
// in-memory enum ordering, which predates the wire format).
const (
	WireMetricL2      uint8 = 0
	WireMetricCosine  uint8 = 1
	WireMetricDot     uint8 = 2
	WireMetricHamming uint8 = 3
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// checksum computes the CRC32C (Castagnoli) checksum used for every
// section and WAL record. hash/crc32 is the standard library's own
// implementation of the Castagnoli polynomial; no third-party checksum
// library in the retrieved corpus implements CRC32C specifically, so this
// is the one piece of this package grounded on the standard library rather
// than an example repo, matching the existing use of hash/crc32 (NewIEEE)
// in internal/index/hnsw/persistence.go.
func checksum(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

func verifyChecksum(section string, data []byte, want uint32) error {
	if got := checksum(data); got != want {
		return verrors.Corruption(section, "checksum mismatch")
	}
	return nil
}
