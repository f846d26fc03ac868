// Package metadata implements the per-VectorId attribute store. Its
// lifecycle mirrors vecstore: no locking of its own, insertion-order
// independent, absent entries behave as "all attributes null" for filter
// purposes.
//
// Grounded on internal/filter/interfaces.go's VectorEntry.Metadata map and
// libravdb/types.go's MetadataSchema/FieldType.
package metadata

import "github.com/edgevec/edgevec/internal/vecstore"

// Value is one metadata attribute value: string, finite float64, bool, or
// []string. Neither Put nor the façade's Insert checks the dynamic type;
// a value of any other type is stored as given.
type Value any

// Store maps VectorId to a small attribute dictionary.
type Store struct {
	attrs map[vecstore.VectorId]map[string]Value
}

// New returns an empty metadata store.
func New() *Store {
	return &Store{attrs: make(map[vecstore.VectorId]map[string]Value)}
}

// Put replaces the full attribute dictionary for id. A nil or empty meta
// is legal and simply removes any prior entry (absent == all-null).
func (s *Store) Put(id vecstore.VectorId, meta map[string]Value) {
	if len(meta) == 0 {
		delete(s.attrs, id)
		return
	}
	cp := make(map[string]Value, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	s.attrs[id] = cp
}

// Get returns the attribute dictionary for id, or nil if absent. The
// returned map must not be mutated by callers.
func (s *Store) Get(id vecstore.VectorId) map[string]Value {
	return s.attrs[id]
}

// Remove deletes any attribute dictionary stored for id.
func (s *Store) Remove(id vecstore.VectorId) {
	delete(s.attrs, id)
}

// Len returns the number of ids with a non-empty attribute dictionary.
func (s *Store) Len() int { return len(s.attrs) }
