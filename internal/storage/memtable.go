package storage

import (
	"iter"
	"slices"
	"strings"
)

// MemTable is an ordered in-memory KV. Keys are kept sorted so prefix scans
// walk a contiguous range in either direction.
type MemTable struct {
	keys   []string
	values map[string][]byte
	dirty  bool
}

// NewMemTable creates an empty table
func NewMemTable() *MemTable {
	return &MemTable{values: make(map[string][]byte)}
}

// Len returns the number of stored keys
func (m *MemTable) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy of the table with a clean dirty flag
func (m *MemTable) Clone() *MemTable {
	values := make(map[string][]byte, len(m.values))
	for k, v := range m.values {
		values[k] = v
	}
	return &MemTable{
		keys:   slices.Clone(m.keys),
		values: values,
	}
}

// Dirty reports whether the table was written since it was cloned
func (m *MemTable) Dirty() bool {
	return m.dirty
}

// Get returns the value stored at key
func (m *MemTable) Get(key []byte) ([]byte, error) {
	v, ok := m.values[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Set stores value at key, replacing any existing value
func (m *MemTable) Set(key, value []byte) error {
	k := string(key)
	if _, exists := m.values[k]; !exists {
		i, _ := slices.BinarySearch(m.keys, k)
		m.keys = slices.Insert(m.keys, i, k)
	}
	m.values[k] = slices.Clone(value)
	m.dirty = true
	return nil
}

// Delete removes key; deleting an absent key is a no-op
func (m *MemTable) Delete(key []byte) error {
	k := string(key)
	if _, exists := m.values[k]; !exists {
		return nil
	}
	i, _ := slices.BinarySearch(m.keys, k)
	m.keys = slices.Delete(m.keys, i, i+1)
	delete(m.values, k)
	m.dirty = true
	return nil
}

// Scan iterates all keys starting with prefix in the requested order
func (m *MemTable) Scan(prefix []byte, order Order) iter.Seq2[Entry, error] {
	p := string(prefix)
	start, _ := slices.BinarySearch(m.keys, p)
	end := len(m.keys)
	if upper := PrefixEnd(prefix); upper != nil {
		end, _ = slices.BinarySearch(m.keys, string(upper))
	}
	// Copy the range so writes during iteration cannot shift it
	keys := slices.Clone(m.keys[start:max(start, end)])

	return func(yield func(Entry, error) bool) {
		emit := func(k string) bool {
			if !strings.HasPrefix(k, p) {
				return true
			}
			v, ok := m.values[k]
			if !ok {
				return true
			}
			return yield(Entry{Key: []byte(k), Value: slices.Clone(v)}, nil)
		}
		if order == Descending {
			for i := len(keys) - 1; i >= 0; i-- {
				if !emit(keys[i]) {
					return
				}
			}
			return
		}
		for _, k := range keys {
			if !emit(k) {
				return
			}
		}
	}
}

// Entries returns every entry in ascending key order
func (m *MemTable) Entries() []Entry {
	entries := make([]Entry, 0, len(m.keys))
	for _, k := range m.keys {
		entries = append(entries, Entry{Key: []byte(k), Value: m.values[k]})
	}
	return entries
}

// readOnlyKV rejects writes to the wrapped table
type readOnlyKV struct {
	table *MemTable
}

func (r readOnlyKV) Get(key []byte) ([]byte, error) { return r.table.Get(key) }
func (r readOnlyKV) Set(key, value []byte) error    { return ErrReadOnly }
func (r readOnlyKV) Delete(key []byte) error        { return ErrReadOnly }
func (r readOnlyKV) Scan(prefix []byte, order Order) iter.Seq2[Entry, error] {
	return r.table.Scan(prefix, order)
}
