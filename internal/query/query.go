// Package query implements the read path: feed lookups paired with
// re-verifiable update-data, and the feed-id/guardian-set admin surface.
package query

import (
	"errors"

	"github.com/SEJeff/pyth-crosschain/internal/merkle"
	"github.com/SEJeff/pyth-crosschain/internal/store"
	"github.com/SEJeff/pyth-crosschain/internal/verifier"
	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

// ErrTypeMismatch is the defensive error returned when a returned
// MessageState is not a PriceFeedMessage; the store's filter should
// prevent this from ever happening.
var ErrTypeMismatch = errors.New("query: type mismatch")

// PriceFeedUpdate is one queried feed value paired with the minimal
// update-data blob needed to re-verify it off-box.
type PriceFeedUpdate struct {
	PriceFeed        vaa.PriceFeedMessage
	Slot             uint64
	ReceivedAt       int64
	SingleUpdateData merkle.UpdateData
}

// PriceFeedsResult is the full response to GetPriceFeedsWithUpdateData:
// one PriceFeedUpdate per requested feed, plus a bulk update-data list
// spanning every slot represented across the whole result.
type PriceFeedsResult struct {
	Feeds          []PriceFeedUpdate
	BulkUpdateData []merkle.UpdateData
}

// Server is the query surface over a Storage, resolving verbatim VAA
// bytes for update-data assembly via the same WormholeMerkleState the
// ingestion coordinator wrote when it ingested the slot's VAA.
type Server struct {
	storage      *store.Storage
	guardianSets *verifier.GuardianSets
}

// New returns a Server reading from storage and guardianSets.
func New(storage *store.Storage, guardianSets *verifier.GuardianSets) *Server {
	return &Server{storage: storage, guardianSets: guardianSets}
}

// UpdateGuardianSet overwrites any prior guardian set at index.
func (s *Server) UpdateGuardianSet(index uint32, set vaa.GuardianSet) {
	s.guardianSets.Update(index, set)
}

func (s *Server) vaaBytesForSlot(slot uint64) ([]byte, bool) {
	state, ok := s.storage.FetchWormholeMerkleState(store.Slot(slot))
	if !ok {
		return nil, false
	}
	return state.VAABytes, true
}

// GetPriceFeedsWithUpdateData resolves one MessageState per requested
// feed id under requestTime, then assembles both a per-message and a
// bulk update-data blob for the result.
func (s *Server) GetPriceFeedsWithUpdateData(feedIDs [][32]byte, requestTime store.RequestTime) (PriceFeedsResult, error) {
	states, err := s.storage.FetchMessageStates(feedIDs, requestTime, store.PriceFeedOnlyFilter())
	if err != nil {
		return PriceFeedsResult{}, err
	}

	feeds := make([]PriceFeedUpdate, 0, len(states))
	selection := make([]merkle.Selected, 0, len(states))
	for _, st := range states {
		if st.Message.PriceFeed == nil {
			return PriceFeedsResult{}, ErrTypeMismatch
		}

		sel := merkle.Selected{
			Slot:       uint64(st.Slot),
			RawMessage: st.RawMessage,
			Proof:      st.Proof.MerkleProof,
		}
		selection = append(selection, sel)

		single := merkle.ConstructUpdateData([]merkle.Selected{sel}, s.vaaBytesForSlot)
		var singleBlob merkle.UpdateData
		if len(single) == 1 {
			singleBlob = single[0]
		}

		feeds = append(feeds, PriceFeedUpdate{
			PriceFeed:        *st.Message.PriceFeed,
			Slot:             uint64(st.Slot),
			ReceivedAt:       st.ReceivedAt,
			SingleUpdateData: singleBlob,
		})
	}

	bulk := merkle.ConstructUpdateData(selection, s.vaaBytesForSlot)

	return PriceFeedsResult{Feeds: feeds, BulkUpdateData: bulk}, nil
}

// GetPriceFeedIds returns the set of feed ids currently represented in
// the per-feed history.
func (s *Server) GetPriceFeedIds() map[[32]byte]struct{} {
	ids := make(map[[32]byte]struct{})
	for _, key := range s.storage.MessageStateKeys() {
		if key.Type == vaa.MessageTypePriceFeed {
			ids[key.FeedID] = struct{}{}
		}
	}
	return ids
}
