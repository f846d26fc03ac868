package quant

import (
	"sort"

	"github.com/edgevec/edgevec/internal/util"
)

// BQCandidateSource supplies the packed BQ payload for a candidate id; it
// is satisfied by a thin adapter over vecstore.Store in the facade.
type BQCandidateSource interface {
	BQBytes(slot uint32) ([]byte, bool)
	F32(slot uint32) []float32
}

// SearchBQRescored implements searchBQRescored(q, k, rf): first ranks
// candidates by Hamming distance over their BQ payloads, keeping the top
// k*rf, then re-ranks that shortlist by exact F32 distance via the
// configured metric kernel and returns the top k. rf=1 performs no
// rescoring. Grounded on internal/index/hnsw/search.go's
// computeDistanceOptimized decompress-and-rescore fallback.
func SearchBQRescored(query []float32, queryBQ []byte, candidates []uint32, src BQCandidateSource, k int, rf int, dist util.Func) []util.Candidate {
	if rf < 1 {
		rf = 1
	}
	shortlistSize := k * rf
	if shortlistSize > len(candidates) {
		shortlistSize = len(candidates)
	}

	hamRanked := make([]util.Candidate, 0, len(candidates))
	for _, slot := range candidates {
		bits, ok := src.BQBytes(slot)
		if !ok {
			continue
		}
		hamRanked = append(hamRanked, util.Candidate{ID: slot, Distance: float32(Hamming(queryBQ, bits))})
	}
	sort.Slice(hamRanked, func(i, j int) bool {
		if hamRanked[i].Distance != hamRanked[j].Distance {
			return hamRanked[i].Distance < hamRanked[j].Distance
		}
		return hamRanked[i].ID < hamRanked[j].ID
	})
	if shortlistSize > len(hamRanked) {
		shortlistSize = len(hamRanked)
	}
	shortlist := hamRanked[:shortlistSize]

	if rf == 1 {
		if k < len(shortlist) {
			shortlist = shortlist[:k]
		}
		return shortlist
	}

	rescored := make([]util.Candidate, len(shortlist))
	for i, c := range shortlist {
		rescored[i] = util.Candidate{ID: c.ID, Distance: dist(query, src.F32(c.ID))}
	}
	sort.Slice(rescored, func(i, j int) bool {
		if rescored[i].Distance != rescored[j].Distance {
			return rescored[i].Distance < rescored[j].Distance
		}
		return rescored[i].ID < rescored[j].ID
	})
	if k < len(rescored) {
		rescored = rescored[:k]
	}
	return rescored
}
