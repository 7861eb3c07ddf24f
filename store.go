package erpsync

import "sync"

// Entity is any record held in a Store. IDs are assigned by the backend; the
// store never invents them.
type Entity interface {
	EntityID() string
}

// Store is a goroutine-safe keyed collection for one entity type. It is the
// single source of truth for rendering and performs no validation: callers
// (the sync controller) guarantee id uniqueness on Add.
//
// Insertion order is preserved so list views stay stable across
// reconciliations.
type Store[T Entity] struct {
	mu      sync.RWMutex
	records []T
	index   map[string]int
}

// NewStore creates an empty store.
func NewStore[T Entity]() *Store[T] {
	return &Store[T]{index: make(map[string]int)}
}

// SetAll replaces the entire collection.
func (s *Store[T]) SetAll(records []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]T(nil), records...)
	s.reindex()
}

// Add appends one record. The caller guarantees the id is not already present.
func (s *Store[T]) Add(record T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[record.EntityID()] = len(s.records)
	s.records = append(s.records, record)
}

// Update applies a merge function to the record matching id. It reports
// whether the record was found.
func (s *Store[T]) Update(id string, apply func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.records[i] = apply(s.records[i])
	return true
}

// Replace overwrites the record matching record's id with the given record.
// It reports whether the record was found.
func (s *Store[T]) Replace(record T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[record.EntityID()]
	if !ok {
		return false
	}
	s.records[i] = record
	return true
}

// Upsert replaces the record if present, appends it otherwise.
func (s *Store[T]) Upsert(record T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[record.EntityID()]; ok {
		s.records[i] = record
		return
	}
	s.index[record.EntityID()] = len(s.records)
	s.records = append(s.records, record)
}

// Remove deletes the record matching id. It reports whether the record was
// present.
func (s *Store[T]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return false
	}
	s.removeLocked(map[string]bool{id: true})
	return true
}

// RemoveMany deletes every record whose id is in ids.
func (s *Store[T]) RemoveMany(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(drop)
}

// Reconcile applies a full server response: records absent from the server
// are pruned, records present are upserted verbatim. Local insertion order is
// kept for surviving records; new records append in server order.
func (s *Store[T]) Reconcile(server []T) {
	keep := make(map[string]bool, len(server))
	for _, r := range server {
		keep[r.EntityID()] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.records[:0]
	for _, r := range s.records {
		if keep[r.EntityID()] {
			filtered = append(filtered, r)
		}
	}
	s.records = filtered
	s.reindex()

	for _, r := range server {
		if i, ok := s.index[r.EntityID()]; ok {
			s.records[i] = r
		} else {
			s.index[r.EntityID()] = len(s.records)
			s.records = append(s.records, r)
		}
	}
}

// Get returns the record matching id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return s.records[i], true
	}
	var zero T
	return zero, false
}

// List returns a snapshot of the collection.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.records...)
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store[T]) removeLocked(drop map[string]bool) {
	filtered := s.records[:0]
	for _, r := range s.records {
		if !drop[r.EntityID()] {
			filtered = append(filtered, r)
		}
	}
	// Clear the tail so removed records are not retained.
	for i := len(filtered); i < len(s.records); i++ {
		var zero T
		s.records[i] = zero
	}
	s.records = filtered
	s.reindex()
}

func (s *Store[T]) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.EntityID()] = i
	}
}
