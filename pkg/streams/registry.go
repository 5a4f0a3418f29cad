package streams

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrNotFound  = errors.New("stream not found")
	ErrDuplicate = errors.New("duplicate stream id")
)

// Registry is the set of active streams, keyed by id. It is safe for
// concurrent use. Mutations are exclusive; reads may run concurrently with
// each other and always observe a consistent snapshot.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string // ids in insertion order
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Insert adds a record, failing with ErrDuplicate if a record with the same
// id already exists.
func (r *Registry) Insert(rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	}
	r.records[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *Registry) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Remove removes and returns the record with the given id. Of any number of
// concurrent calls for the same id, exactly one succeeds; the others fail
// with ErrNotFound. The caller becomes responsible for the record's handle.
func (r *Registry) Remove(id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.removeLocked(id)
	return rec, nil
}

// RemoveIf removes rec only if it is still the record stored under its id,
// and reports whether it did.
func (r *Registry) RemoveIf(rec *Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.records[rec.ID]; !ok || cur != rec {
		return false
	}
	r.removeLocked(rec.ID)
	return true
}

// RemoveAll atomically removes and returns every record, in insertion order.
func (r *Registry) RemoveAll() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.listLocked()
	r.records = make(map[string]*Record)
	r.order = nil
	return recs
}

// List returns a snapshot of every record, in insertion order.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) listLocked() []*Record {
	recs := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		recs = append(recs, r.records[id])
	}
	return recs
}

func (r *Registry) removeLocked(id string) {
	delete(r.records, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool {
		return s == id
	})
}
