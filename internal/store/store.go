package store

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Storage is the slot-indexed attestation cache: partial VAA/accumulator
// state keyed by slot, and a completed per-feed history keyed by
// (feed_id, message_type). It holds no verification logic of its own.
type Storage struct {
	mu sync.RWMutex

	cacheSize int

	wormholeMerkleStates map[Slot]WormholeMerkleState
	accumulatorMessages  map[Slot]AccumulatorMessages

	history map[MessageKey][]MessageState
}

// NewStorage returns a Storage retaining at most cacheSize distinct slots
// of completed message-state history.
func NewStorage(cacheSize int) *Storage {
	return &Storage{
		cacheSize:            cacheSize,
		wormholeMerkleStates: make(map[Slot]WormholeMerkleState),
		accumulatorMessages:  make(map[Slot]AccumulatorMessages),
		history:              make(map[MessageKey][]MessageState),
	}
}

// StoreWormholeMerkleState is an idempotent upsert keyed by state.Root.Slot.
func (s *Storage) StoreWormholeMerkleState(state WormholeMerkleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wormholeMerkleStates[Slot(state.Root.Slot)] = state
	s.evictPartialLocked()
}

// FetchWormholeMerkleState returns the state stored for slot, if any.
func (s *Storage) FetchWormholeMerkleState(slot Slot) (WormholeMerkleState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.wormholeMerkleStates[slot]
	return state, ok
}

// StoreAccumulatorMessages is an idempotent upsert keyed by batch.Slot.
func (s *Storage) StoreAccumulatorMessages(batch AccumulatorMessages) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accumulatorMessages[batch.Slot] = batch
	s.evictPartialLocked()
}

// FetchAccumulatorMessages returns the batch stored for slot, if any.
func (s *Storage) FetchAccumulatorMessages(slot Slot) (AccumulatorMessages, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.accumulatorMessages[slot]
	return batch, ok
}

// StoreMessageStates inserts a batch of completed MessageStates and then
// enforces the cache_size eviction policy across the whole history.
func (s *Storage) StoreMessageStates(states []MessageState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range states {
		key := MessageKey{FeedID: st.FeedID(), Type: st.Message.Type}
		bucket := s.history[key]
		bucket = append(bucket, st)
		slices.SortFunc(bucket, compareMessageStates)
		s.history[key] = bucket
	}

	s.evictCompletedLocked()
}

// MessageStateKeys returns the set of (feed_id, message_type) pairs
// currently represented in the history.
func (s *Storage) MessageStateKeys() []MessageKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]MessageKey, 0, len(s.history))
	for k, bucket := range s.history {
		if len(bucket) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// compareMessageStates orders by publish_time ascending, ties broken by
// slot ascending, matching the per-feed history invariant.
func compareMessageStates(a, b MessageState) int {
	if a.PublishTime() != b.PublishTime() {
		if a.PublishTime() < b.PublishTime() {
			return -1
		}
		return 1
	}
	if a.Slot != b.Slot {
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	}
	return 0
}

// evictCompletedLocked keeps exactly the cache_size largest slot numbers
// that currently have any MessageState, dropping all entries for every
// other slot. Must be called with mu held.
func (s *Storage) evictCompletedLocked() {
	retained := s.retainedSlotsLocked()
	if retained == nil {
		return
	}

	for key, bucket := range s.history {
		filtered := bucket[:0:0]
		for _, st := range bucket {
			if retained[st.Slot] {
				filtered = append(filtered, st)
			}
		}
		if len(filtered) == 0 {
			delete(s.history, key)
		} else {
			s.history[key] = filtered
		}
	}
}

// retainedSlotsLocked computes the cache_size largest slot numbers present
// in the completed history, or nil if no eviction is needed.
func (s *Storage) retainedSlotsLocked() map[Slot]bool {
	seen := make(map[Slot]bool)
	for _, bucket := range s.history {
		for _, st := range bucket {
			seen[st.Slot] = true
		}
	}
	if len(seen) <= s.cacheSize {
		return nil
	}

	all := make([]Slot, 0, len(seen))
	for slot := range seen {
		all = append(all, slot)
	}
	slices.Sort(all)

	retained := make(map[Slot]bool, s.cacheSize)
	for _, slot := range all[len(all)-s.cacheSize:] {
		retained[slot] = true
	}
	return retained
}

// evictPartialLocked applies the same cache_size bound to the partial
// (half-complete) slot state, so a burst of one-sided updates cannot grow
// the partial maps unboundedly. Must be called with mu held.
func (s *Storage) evictPartialLocked() {
	s.evictPartialMapLocked(func() []Slot {
		slots := make([]Slot, 0, len(s.wormholeMerkleStates))
		for slot := range s.wormholeMerkleStates {
			slots = append(slots, slot)
		}
		return slots
	}, func(slot Slot) {
		delete(s.wormholeMerkleStates, slot)
	})

	s.evictPartialMapLocked(func() []Slot {
		slots := make([]Slot, 0, len(s.accumulatorMessages))
		for slot := range s.accumulatorMessages {
			slots = append(slots, slot)
		}
		return slots
	}, func(slot Slot) {
		delete(s.accumulatorMessages, slot)
	})
}

func (s *Storage) evictPartialMapLocked(list func() []Slot, remove func(Slot)) {
	slots := list()
	if len(slots) <= s.cacheSize {
		return
	}
	slices.Sort(slots)
	for _, slot := range slots[:len(slots)-s.cacheSize] {
		remove(slot)
	}
}
