package store

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedID(b byte) [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = b
	}
	return id
}

func priceFeedState(feed byte, slot Slot, publishTime int64) MessageState {
	pfm := vaa.PriceFeedMessage{
		FeedID:      feedID(feed),
		PublishTime: publishTime,
	}
	return MessageState{
		Message:    vaa.Message{Type: vaa.MessageTypePriceFeed, PriceFeed: &pfm},
		RawMessage: vaa.SerializePriceFeedMessage(pfm),
		Slot:       slot,
		ReceivedAt: publishTime,
	}
}

func TestStoreMessageStatesAndFetchLatest(t *testing.T) {
	s := NewStorage(10)
	s.StoreMessageStates([]MessageState{
		priceFeedState(100, 10, 10),
	})

	got, err := s.FetchMessageStates([][32]byte{feedID(100)}, Latest(), PriceFeedOnlyFilter())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Slot(10), got[0].Slot)
}

func TestFetchMessageStatesNotFoundOnUnknownFeed(t *testing.T) {
	s := NewStorage(10)
	_, err := s.FetchMessageStates([][32]byte{feedID(200)}, Latest(), PriceFeedOnlyFilter())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchMessageStatesLatestTieBreaksOnSlot(t *testing.T) {
	s := NewStorage(10)
	s.StoreMessageStates([]MessageState{
		priceFeedState(100, 5, 50),
		priceFeedState(100, 7, 50),
	})

	got, err := s.FetchMessageStates([][32]byte{feedID(100)}, Latest(), PriceFeedOnlyFilter())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Slot(7), got[0].Slot)
}

func TestFetchMessageStatesFirstAfter(t *testing.T) {
	s := NewStorage(10)
	s.StoreMessageStates([]MessageState{
		priceFeedState(100, 1, 10),
		priceFeedState(100, 2, 20),
		priceFeedState(100, 3, 30),
	})

	got, err := s.FetchMessageStates([][32]byte{feedID(100)}, FirstAfter(time.Unix(15, 0)), PriceFeedOnlyFilter())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Slot(2), got[0].Slot)
}

func TestFetchMessageStatesFirstAfterNotFoundWhenAllOlder(t *testing.T) {
	s := NewStorage(10)
	s.StoreMessageStates([]MessageState{
		priceFeedState(100, 1, 10),
	})

	_, err := s.FetchMessageStates([][32]byte{feedID(100)}, FirstAfter(time.Unix(100, 0)), PriceFeedOnlyFilter())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchMessageStatesAllOrNothing(t *testing.T) {
	s := NewStorage(10)
	s.StoreMessageStates([]MessageState{
		priceFeedState(100, 1, 10),
	})

	_, err := s.FetchMessageStates([][32]byte{feedID(100), feedID(200)}, Latest(), PriceFeedOnlyFilter())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheEvictionRetainsLargestSlotNumbers(t *testing.T) {
	const cacheSize = 100
	s := NewStorage(cacheSize)

	var states []MessageState
	for slot := 0; slot < 1000; slot++ {
		states = append(states,
			priceFeedState(100, Slot(slot), int64(slot)),
			priceFeedState(200, Slot(slot), int64(slot)),
		)
	}

	rand.Shuffle(len(states), func(i, j int) { states[i], states[j] = states[j], states[i] })

	var wg sync.WaitGroup
	for _, batch := range chunk(states, 17) {
		wg.Add(1)
		go func(b []MessageState) {
			defer wg.Done()
			s.StoreMessageStates(b)
		}(batch)
	}
	wg.Wait()

	for slot := 900; slot < 1000; slot++ {
		got, err := s.FetchMessageStates(
			[][32]byte{feedID(100), feedID(200)},
			FirstAfter(time.Unix(int64(slot), 0)),
			PriceFeedOnlyFilter(),
		)
		require.NoError(t, err, "slot %d", slot)
		require.Len(t, got, 2)
		for _, g := range got {
			assert.Equal(t, Slot(slot), g.Slot)
		}
	}

	// Slots below the retained window no longer have entries of their own:
	// the earliest surviving publish_time is 900, so any FirstAfter query
	// anchored below it resolves to slot 900 rather than its own evicted
	// slot, and nothing beyond the newest slot resolves at all.
	got, err := s.FetchMessageStates(
		[][32]byte{feedID(100), feedID(200)},
		FirstAfter(time.Unix(0, 0)),
		PriceFeedOnlyFilter(),
	)
	require.NoError(t, err)
	for _, g := range got {
		assert.Equal(t, Slot(900), g.Slot)
	}

	_, err = s.FetchMessageStates(
		[][32]byte{feedID(100), feedID(200)},
		FirstAfter(time.Unix(1000, 0)),
		PriceFeedOnlyFilter(),
	)
	assert.ErrorIs(t, err, ErrNotFound)

	latest, err := s.FetchMessageStates([][32]byte{feedID(100)}, Latest(), PriceFeedOnlyFilter())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, Slot(999), latest[0].Slot)
}

func chunk(states []MessageState, n int) [][]MessageState {
	var chunks [][]MessageState
	for i := 0; i < len(states); i += n {
		end := i + n
		if end > len(states) {
			end = len(states)
		}
		chunks = append(chunks, states[i:end])
	}
	return chunks
}

func TestStoreWormholeMerkleStatePartialEviction(t *testing.T) {
	s := NewStorage(2)
	for slot := uint64(0); slot < 5; slot++ {
		s.StoreWormholeMerkleState(WormholeMerkleState{Root: vaa.WormholeMerkleRoot{Slot: slot}})
	}

	_, ok := s.FetchWormholeMerkleState(Slot(0))
	assert.False(t, ok)
	_, ok = s.FetchWormholeMerkleState(Slot(4))
	assert.True(t, ok)
}

func TestMessageStateKeys(t *testing.T) {
	s := NewStorage(10)
	s.StoreMessageStates([]MessageState{
		priceFeedState(100, 1, 10),
		priceFeedState(200, 1, 10),
	})

	keys := s.MessageStateKeys()
	assert.Len(t, keys, 2)
}
