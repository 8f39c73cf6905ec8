package partners

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter holds the two search predicates of a list screen.
type Filter struct {
	Name  string
	TaxID string
}

// Matches reports whether r passes both predicates. Name matching is a
// case-folded substring test, tax id matching is an exact substring test.
func (f Filter) Matches(r Record) bool {
	return f.matcher()(r)
}

// matcher folds the name query once for repeated use.
func (f Filter) matcher() func(Record) bool {
	if f.Name == "" {
		return func(r Record) bool { return strings.Contains(r.TaxID, f.TaxID) }
	}
	fold := cases.Fold()
	name := fold.String(f.Name)
	return func(r Record) bool {
		return strings.Contains(fold.String(r.Name), name) && strings.Contains(r.TaxID, f.TaxID)
	}
}

// IsZero reports whether the filter accepts every record.
func (f Filter) IsZero() bool {
	return f.Name == "" && f.TaxID == ""
}

// Store is the in-memory mirror of a remote collection plus its active
// filter. It is not safe for concurrent use.
type Store struct {
	records []Record
	filter  Filter
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the collection. Later duplicates of a non-zero id are dropped.
func (s *Store) Load(records []Record) {
	seen := make(map[int64]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID != 0 {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		out = append(out, r)
	}
	s.records = out
}

// Upsert appends r under a fresh id when r is new, otherwise replaces the
// record with the same id. Updating an id that is not present is a no-op and
// reports false.
func (s *Store) Upsert(r Record) (Record, bool) {
	if r.IsNew() {
		r.ID = s.nextID()
		s.records = append(s.records, r)
		return r, true
	}
	i := s.index(r.ID)
	if i < 0 {
		return Record{}, false
	}
	s.records[i] = r
	return r, true
}

// Put stores a record whose id was assigned elsewhere, replacing any record
// with that id. New records are rejected.
func (s *Store) Put(r Record) bool {
	if r.IsNew() {
		return false
	}
	if i := s.index(r.ID); i >= 0 {
		s.records[i] = r
		return true
	}
	s.records = append(s.records, r)
	return true
}

// Remove deletes the record with id and reports whether one was found.
func (s *Store) Remove(id int64) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	return true
}

// SetFilter replaces the active filter.
func (s *Store) SetFilter(f Filter) {
	s.filter = f
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	return s.filter
}

// FilteredView projects the collection through the active filter. The result
// is a fresh slice on every call.
func (s *Store) FilteredView() []Record {
	out := make([]Record, 0, len(s.records))
	match := s.filter.matcher()
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of the whole collection.
func (s *Store) All() []Record {
	return append([]Record(nil), s.records...)
}

// Get looks up a record by id.
func (s *Store) Get(id int64) (Record, bool) {
	if i := s.index(id); i >= 0 {
		return s.records[i], true
	}
	return Record{}, false
}

// Len returns the collection size.
func (s *Store) Len() int {
	return len(s.records)
}

func (s *Store) index(id int64) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// nextID is max(existing ids)+1 so ids freed by deletes are never reused
// while a higher id is still present.
func (s *Store) nextID() int64 {
	var highest int64
	for _, r := range s.records {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}
