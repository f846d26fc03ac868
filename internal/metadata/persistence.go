package metadata

import "github.com/edgevec/edgevec/internal/vecstore"

// All returns every id's attribute dictionary, for the metadata snapshot
// section. Callers must not mutate the returned maps.
func (s *Store) All() map[vecstore.VectorId]map[string]Value {
	return s.attrs
}

// LoadAll replaces the store's entire attribute table, for snapshot
// restore. attrs is taken by reference, not copied.
func LoadAll(attrs map[vecstore.VectorId]map[string]Value) *Store {
	if attrs == nil {
		attrs = make(map[vecstore.VectorId]map[string]Value)
	}
	return &Store{attrs: attrs}
}
