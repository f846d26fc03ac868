package edgevec

import (
	"sync"

	"github.com/edgevec/edgevec/internal/filter"
	"github.com/edgevec/edgevec/internal/metadata"
	"github.com/edgevec/edgevec/internal/util"
	"github.com/edgevec/edgevec/internal/verrors"
)

// filterHistogramsHolder owns the attribute-value histograms the
// selectivity estimator needs (internal/filter.EstimateSelectivity),
// updated as metadata is written so later filtered searches can choose
// between the pre-filter and post-filter plans. Kept as a thin holder
// rather than a bare *filter.Histograms field so callers have one place
// to add locking later if selectivity estimation moves off the façade
// lock (it currently shares Index.mu like everything else).
type filterHistogramsHolder struct {
	h *filter.Histograms
}

func newFilterHistogramsHolder() *filterHistogramsHolder {
	return &filterHistogramsHolder{h: filter.NewHistograms()}
}

func (f *filterHistogramsHolder) observe(meta map[string]metadata.Value) {
	for attr, val := range meta {
		f.h.Observe(attr, val)
	}
}

// parseFilterCache memoizes filter.Parse results per expression string in
// one process-wide cache shared by every Index, since search_filtered is frequently
// called with the same filter repeatedly from a single host query path.
type parseFilterCache struct {
	mu    sync.Mutex
	cache map[string]filter.Node
}

var globalFilterCache = &parseFilterCache{cache: make(map[string]filter.Node)}

func parseFilterCached(expr string) (filter.Node, error) {
	globalFilterCache.mu.Lock()
	if node, ok := globalFilterCache.cache[expr]; ok {
		globalFilterCache.mu.Unlock()
		return node, nil
	}
	globalFilterCache.mu.Unlock()

	node, err := filter.Parse(expr)
	if err != nil {
		return nil, err
	}

	globalFilterCache.mu.Lock()
	globalFilterCache.cache[expr] = node
	globalFilterCache.mu.Unlock()
	return node, nil
}

func evaluateFilter(expr filter.Node, meta map[string]metadata.Value) bool {
	return filter.Evaluate(expr, meta)
}

// EstimateFilterSelectivity exposes internal/filter.EstimateSelectivity for
// callers that want to inspect a filter's estimated match rate directly.
// Search itself calls the same estimator internally to choose between the
// pre-filter brute-force path and the post-filter graph-widening path.
func (idx *Index) EstimateFilterSelectivity(expr string) (float64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	node, err := parseFilterCached(expr)
	if err != nil {
		return 0, err
	}
	return filter.EstimateSelectivity(node, idx.hist.h), nil
}

func utilFuncForMetric(m Metric) (util.Func, error) {
	um, ok := m.toUtil()
	if !ok {
		return nil, verrors.Internal("metric has no continuous-space distance function")
	}
	return util.ForMetric(um)
}
