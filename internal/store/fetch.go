package store

import (
	"golang.org/x/exp/slices"
)

// FetchMessageStates resolves one MessageState per requested feed id,
// honoring requestTime and filter. The call is all-or-nothing: if any
// feed id has no matching entry, it fails with ErrNotFound and returns no
// partial results.
func (s *Storage) FetchMessageStates(feedIDs [][32]byte, requestTime RequestTime, filter MessageStateFilter) ([]MessageState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]MessageState, 0, len(feedIDs))
	for _, feedID := range feedIDs {
		candidates := s.candidatesLocked(feedID, filter)
		chosen, ok := selectByRequestTime(candidates, requestTime)
		if !ok {
			return nil, ErrNotFound
		}
		if !filter.Matches(chosen.Message.Type) {
			return nil, ErrTypeMismatch
		}
		result = append(result, chosen)
	}
	return result, nil
}

// candidatesLocked flattens every history bucket matching feedID and
// filter into a single publish_time-ascending, slot-ascending slice.
func (s *Storage) candidatesLocked(feedID [32]byte, filter MessageStateFilter) []MessageState {
	var candidates []MessageState
	for key, bucket := range s.history {
		if key.FeedID != feedID || !filter.Matches(key.Type) {
			continue
		}
		candidates = append(candidates, bucket...)
	}
	slices.SortFunc(candidates, compareMessageStates)
	return candidates
}

// selectByRequestTime applies the Latest/FirstAfter selection rule over a
// publish_time-ascending, slot-ascending candidate slice.
func selectByRequestTime(candidates []MessageState, rt RequestTime) (MessageState, bool) {
	if len(candidates) == 0 {
		return MessageState{}, false
	}

	switch rt.Kind {
	case RequestTimeLatest:
		return candidates[len(candidates)-1], true
	case RequestTimeFirstAfter:
		at := rt.At.Unix()
		for _, c := range candidates {
			if c.PublishTime() >= at {
				return c, true
			}
		}
		return MessageState{}, false
	default:
		return MessageState{}, false
	}
}
