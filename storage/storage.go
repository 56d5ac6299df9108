// Package storage implements UnifiedStorage, the indexed object store
// abstraction backing WrapperBase's persisted swap index: a small query
// language over declared single-key indexes (composite indexes are
// maintained for uniqueness checks only; Query does not use them). The interface
// is intentionally backend-agnostic (a filesystem-one-file-per-id store,
// browser local storage, or a SQL/index DB are all equally valid
// implementations); MemoryStore here is the one concrete backend this
// engine ships, a mutex-guarded in-memory map maintaining a set of
// derived indexes alongside the primary record map.
package storage

import (
	"fmt"
	"sync"
)

// Record is anything UnifiedStorage can persist: a stable identifier plus
// the values its declared indexes are computed over.
type Record interface {
	// StorageId returns the record's stable identifier.
	StorageId() string

	// IndexValues returns the value of every declared index field this
	// record has, keyed by index field name. A field absent from the
	// map is treated as null for nullable indexes.
	IndexValues() map[string]string
}

// IndexSpec declares a single-key index.
type IndexSpec struct {
	Field    string
	Unique   bool
	Nullable bool
}

// CompositeIndexSpec declares an index over an ordered tuple of fields.
type CompositeIndexSpec struct {
	Fields []string
	Unique bool
}

// Clause is one conjunctive term: Field must equal one of Values.
type Clause struct {
	Field  string
	Values []string
}

// Conjunction is a set of Clauses that must all hold (AND).
type Conjunction []Clause

// Query is a disjunction of Conjunctions (OR of ANDs)
// "outer sequence = disjunction; inner sequence = conjunction" format.
type Query []Conjunction

// Store is the UnifiedStorage contract.
type Store interface {
	Save(r Record) error
	SaveAll(rs []Record) error
	Remove(id string) error
	RemoveAll(ids []string) error
	Query(q Query) ([]Record, error)
}

// ErrUniqueViolation is returned by Save/SaveAll when a unique index or
// composite index would collide with a different record's value.
type ErrUniqueViolation struct {
	Field string
	Value string
}

func (e *ErrUniqueViolation) Error() string {
	return fmt.Sprintf("unique index violation on %q = %q", e.Field, e.Value)
}

// MemoryStore is an in-memory Store, guarded by a single mutex so that
// Save is atomic with respect to Query.
type MemoryStore struct {
	mu sync.RWMutex

	indexes     []IndexSpec
	composite   []CompositeIndexSpec
	records     map[string]Record
	singleIndex map[string]map[string]map[string]struct{}  // field -> value -> ids
	compIndex   map[string]map[string]map[string]struct{}  // compositeKey -> value -> ids
}

// NewMemoryStore builds a Store with the given declared indexes.
func NewMemoryStore(indexes []IndexSpec, composite []CompositeIndexSpec) *MemoryStore {
	s := &MemoryStore{
		indexes:     indexes,
		composite:   composite,
		records:     make(map[string]Record),
		singleIndex: make(map[string]map[string]map[string]struct{}),
		compIndex:   make(map[string]map[string]map[string]struct{}),
	}
	for _, idx := range indexes {
		s.singleIndex[idx.Field] = make(map[string]map[string]struct{})
	}
	for _, idx := range composite {
		s.compIndex[compositeKey(idx.Fields)] = make(map[string]map[string]struct{})
	}
	return s
}

func compositeKey(fields []string) string {
	key := ""
	for i, f := range fields {
		if i > 0 {
			key += "\x00"
		}
		key += f
	}
	return key
}

// Save persists r, replacing any existing record with the same
// StorageId, after checking declared unique indexes for collisions with
// a *different* record.
func (s *MemoryStore) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(r)
}

func (s *MemoryStore) saveLocked(r Record) error {
	id := r.StorageId()
	values := r.IndexValues()

	if err := s.checkUniqueLocked(id, values); err != nil {
		return err
	}

	if existing, ok := s.records[id]; ok {
		s.deindexLocked(id, existing.IndexValues())
	}

	s.records[id] = r
	s.indexLocked(id, values)
	return nil
}

func (s *MemoryStore) checkUniqueLocked(id string, values map[string]string) error {
	for _, idx := range s.indexes {
		if !idx.Unique {
			continue
		}
		val, present := values[idx.Field]
		if !present {
			continue
		}
		if ids, ok := s.singleIndex[idx.Field][val]; ok {
			for existingId := range ids {
				if existingId != id {
					return &ErrUniqueViolation{Field: idx.Field, Value: val}
				}
			}
		}
	}
	for _, idx := range s.composite {
		if !idx.Unique {
			continue
		}
		val, ok := compositeValue(idx.Fields, values)
		if !ok {
			continue
		}
		key := compositeKey(idx.Fields)
		if ids, ok := s.compIndex[key][val]; ok {
			for existingId := range ids {
				if existingId != id {
					return &ErrUniqueViolation{Field: key, Value: val}
				}
			}
		}
	}
	return nil
}

func compositeValue(fields []string, values map[string]string) (string, bool) {
	val := ""
	for i, f := range fields {
		v, ok := values[f]
		if !ok {
			return "", false
		}
		if i > 0 {
			val += "\x00"
		}
		val += v
	}
	return val, true
}

func (s *MemoryStore) indexLocked(id string, values map[string]string) {
	for _, idx := range s.indexes {
		val, ok := values[idx.Field]
		if !ok {
			continue
		}
		bucket, ok := s.singleIndex[idx.Field][val]
		if !ok {
			bucket = make(map[string]struct{})
			s.singleIndex[idx.Field][val] = bucket
		}
		bucket[id] = struct{}{}
	}
	for _, idx := range s.composite {
		val, ok := compositeValue(idx.Fields, values)
		if !ok {
			continue
		}
		key := compositeKey(idx.Fields)
		bucket, ok := s.compIndex[key][val]
		if !ok {
			bucket = make(map[string]struct{})
			s.compIndex[key][val] = bucket
		}
		bucket[id] = struct{}{}
	}
}

func (s *MemoryStore) deindexLocked(id string, values map[string]string) {
	for _, idx := range s.indexes {
		val, ok := values[idx.Field]
		if !ok {
			continue
		}
		if bucket, ok := s.singleIndex[idx.Field][val]; ok {
			delete(bucket, id)
		}
	}
	for _, idx := range s.composite {
		val, ok := compositeValue(idx.Fields, values)
		if !ok {
			continue
		}
		key := compositeKey(idx.Fields)
		if bucket, ok := s.compIndex[key][val]; ok {
			delete(bucket, id)
		}
	}
}

// SaveAll persists rs as a single critical section, so a reader never
// observes a partial batch.
func (s *MemoryStore) SaveAll(rs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		if err := s.saveLocked(r); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the record with the given id, if present.
func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
	return nil
}

func (s *MemoryStore) removeLocked(id string) {
	existing, ok := s.records[id]
	if !ok {
		return
	}
	s.deindexLocked(id, existing.IndexValues())
	delete(s.records, id)
}

// RemoveAll deletes every record in ids as a single critical section.
func (s *MemoryStore) RemoveAll(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.removeLocked(id)
	}
	return nil
}

// Query evaluates q (a disjunction of conjunctions) against the declared
// indexes and returns every matching record, deduplicated.
func (s *MemoryStore) Query(q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []Record

	for _, conj := range q {
		ids, err := s.evalConjunctionLocked(conj)
		if err != nil {
			return nil, err
		}
		for id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, s.records[id])
		}
	}

	return out, nil
}

func (s *MemoryStore) evalConjunctionLocked(conj Conjunction) (map[string]struct{}, error) {
	if len(conj) == 0 {
		result := make(map[string]struct{}, len(s.records))
		for id := range s.records {
			result[id] = struct{}{}
		}
		return result, nil
	}

	var result map[string]struct{}
	for _, clause := range conj {
		matched, err := s.evalClauseLocked(clause)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = matched
			continue
		}
		for id := range result {
			if _, ok := matched[id]; !ok {
				delete(result, id)
			}
		}
	}
	return result, nil
}

func (s *MemoryStore) evalClauseLocked(clause Clause) (map[string]struct{}, error) {
	bucket, declared := s.singleIndex[clause.Field]
	if !declared {
		return nil, fmt.Errorf("storage: field %q is not an indexed field", clause.Field)
	}
	out := make(map[string]struct{})
	for _, v := range clause.Values {
		for id := range bucket[v] {
			out[id] = struct{}{}
		}
	}
	return out, nil
}
