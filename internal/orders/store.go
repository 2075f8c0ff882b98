package orders

import (
	"sync"
	"time"
)

type MergeResult int

const (
	MergeInserted MergeResult = iota
	MergeSkipped
)

// Store is the volatile working set of live orders, newest first. It is the
// single shared mutable collection; writers are the sync controller and the
// realtime channel, everything else reads snapshots.
//
// A realtime "new-order" event is creation-only: Merge never overwrites an
// existing entry, so a re-delivered duplicate cannot clobber a status the
// operator already changed. Status moves only through ApplyStatus.
type Store struct {
	mu   sync.RWMutex
	list []Order
}

func NewStore() *Store { return &Store{} }

// Merge inserts the order at the front unless an order with the same id is
// already present.
func (s *Store) Merge(o Order) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.list {
		if existing.ID == o.ID {
			return MergeSkipped
		}
	}
	s.list = append([]Order{o}, s.list...)
	return MergeInserted
}

// ApplyStatus sets the status of the order with the given id. It performs no
// policy validation; callers decide what transitions to offer. Returns false
// when no such order exists.
func (s *Store) ApplyStatus(id string, status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list[i].Status = status
			return true
		}
	}
	return false
}

// ReplaceAll swaps the whole working set, used by the initial full fetch.
func (s *Store) ReplaceAll(list []Order) {
	cp := make([]Order, len(list))
	copy(cp, list)
	s.mu.Lock()
	s.list = cp
	s.mu.Unlock()
}

// EvictExpired drops orders that have fallen outside the live window and
// returns how many were removed. Eviction only narrows the live view; history
// comes from the remote API, not from evicted entries.
func (s *Store) EvictExpired(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.list[:0]
	for _, o := range s.list {
		if IsLive(o, now, window) {
			kept = append(kept, o)
		}
	}
	removed := len(s.list) - len(kept)
	s.list = kept
	return removed
}

// Get returns the order with the given id, if present.
func (s *Store) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.list {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

// Snapshot returns a copy of the working set in display order.
func (s *Store) Snapshot() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]Order, len(s.list))
	copy(cp, s.list)
	return cp
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// NewestPending returns the most recently created order still in Pending.
// Accept/reject act on this order, not necessarily the one that raised the
// alert, since more orders may have queued while the operator responded.
func (s *Store) NewestPending() (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best Order
	found := false
	for _, o := range s.list {
		if !o.Status.Is(StatusPending) {
			continue
		}
		if !found || o.CreatedAt.After(best.CreatedAt) {
			best = o
			found = true
		}
	}
	return best, found
}
