package arraysim

import (
	"fmt"
	"sync"
)

// Collection names served by the simulator.
const (
	ColVolumes           = "volumes"
	ColInitiatorGroups   = "initiator_groups"
	ColChapUsers         = "chap_users"
	ColProtocolEndpoints = "protocol_endpoints"
	ColSnapshots         = "snapshots"
	ColACRs              = "access_control_records"
)

// Identifier prefixes per collection, so ids read like array object ids.
var idPrefix = map[string]string{
	ColVolumes:           "06",
	ColInitiatorGroups:   "02",
	ColChapUsers:         "01",
	ColProtocolEndpoints: "03",
	ColSnapshots:         "04",
	ColACRs:              "0d",
}

// Object is one stored resource. Values must stay JSON-encodable.
type Object map[string]any

// Store is the in-memory array state behind the simulator.
type Store struct {
	mu          sync.Mutex
	seq         int
	collections map[string][]Object
}

func NewStore() *Store {
	return &Store{collections: make(map[string][]Object)}
}

// Add inserts an object into a collection, assigning its identifier.
func (s *Store) Add(collection string, obj Object) Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	stored := make(Object, len(obj)+1)
	for k, v := range obj {
		stored[k] = v
	}
	stored["id"] = fmt.Sprintf("%s%038x", idPrefix[collection], s.seq)
	s.collections[collection] = append(s.collections[collection], stored)
	return stored
}

// FindBy returns the first object whose string field matches value.
func (s *Store) FindBy(collection, field, value string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.collections[collection] {
		if v, ok := obj[field].(string); ok && v == value {
			return obj, true
		}
	}
	return nil, false
}

// FilterBy returns every object whose string field matches value.
func (s *Store) FilterBy(collection, field, value string) []Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Object
	for _, obj := range s.collections[collection] {
		if v, ok := obj[field].(string); ok && v == value {
			out = append(out, obj)
		}
	}
	return out
}

// Delete removes an object by identifier and reports whether it existed.
func (s *Store) Delete(collection, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs := s.collections[collection]
	for i, obj := range objs {
		if v, ok := obj["id"].(string); ok && v == id {
			s.collections[collection] = append(objs[:i], objs[i+1:]...)
			return true
		}
	}
	return false
}

// Count reports the number of objects in a collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}
