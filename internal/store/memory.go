package store

import (
	"errors"
	"sync"
	"time"

	"github.com/Puranjay-del-Mishra/weatheragent/internal/subscription"
)

var (
	// ErrNotFound is returned when no draft exists for a given id.
	ErrNotFound = errors.New("no draft for id")
)

// MemoryStore is a concurrency-safe in-memory draft store with a
// best-effort JSON snapshot on disk. Snapshot failures never block a
// mutation; persistence is advisory.
type MemoryStore struct {
	mu sync.RWMutex

	// key: draft id
	drafts map[string]subscription.Draft

	// per-draft submit guard: true while a submission is in flight
	inflight map[string]bool

	// retention configuration
	maxAge time.Duration // max age since last update (0 = unlimited)

	// persistMu serializes snapshot writers; it is separate from mu so
	// disk writes never block readers.
	persistMu sync.Mutex

	snapshotPath string
}

// NewMemoryStore creates a MemoryStore. If maxAge is <= 0 drafts are
// kept forever. An empty snapshotPath disables disk persistence.
func NewMemoryStore(maxAge time.Duration, snapshotPath string) *MemoryStore {
	return &MemoryStore{
		drafts:       make(map[string]subscription.Draft),
		inflight:     make(map[string]bool),
		maxAge:       maxAge,
		snapshotPath: snapshotPath,
	}
}

// Save upserts a draft and writes the snapshot file best-effort.
func (s *MemoryStore) Save(d subscription.Draft) {
	s.mu.Lock()
	s.drafts[d.ID] = d
	s.mu.Unlock()

	s.persist()
}

// Get returns the draft for id.
func (s *MemoryStore) Get(id string) (subscription.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return subscription.Draft{}, ErrNotFound
	}
	return d, nil
}

// Delete removes the draft for id, if present.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.drafts, id)
	delete(s.inflight, id)
	s.mu.Unlock()

	s.persist()
}

// Len returns the number of stored drafts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// PruneExpired removes drafts not updated within the retention window
// and returns how many were dropped.
func (s *MemoryStore) PruneExpired(now time.Time) int {
	if s.maxAge <= 0 {
		return 0
	}

	cutoff := now.Add(-s.maxAge)

	s.mu.Lock()
	dropped := 0
	for id, d := range s.drafts {
		if d.UpdatedAt.Before(cutoff) {
			delete(s.drafts, id)
			delete(s.inflight, id)
			dropped++
		}
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.persist()
	}
	return dropped
}

// BeginSubmit marks a submission in flight for the draft. It returns
// false when one is already running; callers must not start another.
func (s *MemoryStore) BeginSubmit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

// EndSubmit clears the in-flight flag for the draft.
func (s *MemoryStore) EndSubmit(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}
