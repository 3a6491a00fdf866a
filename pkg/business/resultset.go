package business

import "sync"

// ResultSet holds records in insertion order and rejects records whose
// identity key was already seen. It is safe for concurrent use.
type ResultSet struct {
	mu      sync.Mutex
	records []Record
	seen    map[IdentityKey]struct{}
	frozen  bool
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{seen: make(map[IdentityKey]struct{})}
}

// Add appends r unless a record with the same identity key was added before
// or the set is frozen. It reports whether r was added.
func (s *ResultSet) Add(r Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return false
	}
	k := r.Key()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.records = append(s.records, r)
	return true
}

// Freeze stops the set from accepting further records.
func (s *ResultSet) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (s *ResultSet) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

// Len returns the number of records.
func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the records in insertion order.
func (s *ResultSet) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
