package dhtkv

import (
	"sort"
	"sync"

	"github.com/8xFF/decentralized-sdn/internal/logger"
)

// Entry is one versioned value in the map. Reconciliation is
// last-writer-wins by Version, supplied by the writer (not a local clock),
// so concurrent writers converge regardless of arrival order.
type Entry struct {
	Value   []byte
	Version uint64
}

// store is an in-memory, concurrency-safe key/value map keyed by string.
// Modeled on the teacher's internal/storage.Storage, generalized from
// DHT-ring resources to arbitrary versioned entries.
type store struct {
	lgr  logger.Logger
	mu   sync.RWMutex
	data map[string]Entry
}

func newStore(lgr logger.Logger) *store {
	return &store{lgr: lgr, data: make(map[string]Entry)}
}

// Merge applies e to key under last-writer-wins-by-version, returning true
// if it changed the stored entry (a higher version, or a new key).
func (s *store) Merge(key string, e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.data[key]
	if exists && cur.Version >= e.Version {
		return false
	}
	s.data[key] = e
	return true
}

func (s *store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	return e, ok
}

// All returns a snapshot copy of every (key, entry) pair as a map; entries
// are not sorted and iteration order is not defined.
func (s *store) All() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

func (s *store) DebugLog() {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	s.lgr.Debug("dhtkv store snapshot", logger.F("count", len(keys)), logger.F("keys", keys))
}
