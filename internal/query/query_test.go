package query

import (
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEJeff/pyth-crosschain/internal/merkle"
	"github.com/SEJeff/pyth-crosschain/internal/store"
	"github.com/SEJeff/pyth-crosschain/internal/verifier"
	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

func feedID(b byte) [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = b
	}
	return id
}

func completedSlot(t *testing.T, storage *store.Storage, slot store.Slot, feeds []byte) {
	t.Helper()

	var raws [][]byte
	for _, feed := range feeds {
		raws = append(raws, vaa.SerializePriceFeedMessage(vaa.PriceFeedMessage{
			FeedID:      feedID(feed),
			PublishTime: int64(slot),
		}))
	}

	tree := merkle.Build(raws)
	storage.StoreWormholeMerkleState(store.WormholeMerkleState{
		Root:     vaa.WormholeMerkleRoot{Slot: uint64(slot), Root: tree.Root},
		VAABytes: []byte("vaa-bytes"),
	})

	var states []store.MessageState
	for i, raw := range raws {
		proof, ok := tree.Proof(i)
		require.True(t, ok)
		msg, err := vaa.ParseMessage(raw)
		require.NoError(t, err)
		states = append(states, store.MessageState{
			Message:    msg,
			RawMessage: raw,
			Proof:      store.ProofSet{MerkleProof: proof},
			Slot:       slot,
			ReceivedAt: time.Now().Unix(),
		})
	}
	storage.StoreMessageStates(states)
}

func TestGetPriceFeedsWithUpdateData(t *testing.T) {
	storage := store.NewStorage(10)
	completedSlot(t, storage, 10, []byte{100, 200})

	s := New(storage, verifier.NewGuardianSets())
	result, err := s.GetPriceFeedsWithUpdateData([][32]byte{feedID(100), feedID(200)}, store.Latest())
	require.NoError(t, err)

	require.Len(t, result.Feeds, 2)
	for _, f := range result.Feeds {
		assert.Equal(t, uint64(10), f.Slot)
		assert.NotEmpty(t, f.SingleUpdateData.VAABytes)
	}
	require.Len(t, result.BulkUpdateData, 1)
	assert.Len(t, result.BulkUpdateData[0].Updates, 2)
}

func TestGetPriceFeedIds(t *testing.T) {
	storage := store.NewStorage(10)
	completedSlot(t, storage, 5, []byte{1, 2, 3})

	s := New(storage, verifier.NewGuardianSets())
	ids := s.GetPriceFeedIds()
	assert.Len(t, ids, 3)
	_, ok := ids[feedID(1)]
	assert.True(t, ok)
}

func TestUpdateGuardianSetOverwrites(t *testing.T) {
	gs := verifier.NewGuardianSets()
	s := New(store.NewStorage(10), gs)

	s.UpdateGuardianSet(3, vaa.GuardianSet{Index: 3})
	_, ok := gs.Get(3)
	assert.True(t, ok)

	replacement := vaa.GuardianSet{Index: 3, Keys: []ethcommon.Address{{0x01}}}
	s.UpdateGuardianSet(3, replacement)
	got, ok := gs.Get(3)
	require.True(t, ok)
	assert.Equal(t, uint32(3), got.Index)
	assert.Equal(t, replacement.Keys, got.Keys)
}
