// Package store holds the slot-indexed attestation cache: partial and
// completed slot state, and the per-feed history queries are served from.
package store

import (
	"errors"
	"time"

	"github.com/SEJeff/pyth-crosschain/internal/merkle"
	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

// Slot identifies a batch produced by the upstream chain.
type Slot uint64

// ErrNotFound is returned by FetchMessageStates when a requested feed key
// has no entry satisfying the RequestTime.
var ErrNotFound = errors.New("store: not found")

// ErrTypeMismatch is the defensive error returned when a MessageState does
// not match the filter that selected it.
var ErrTypeMismatch = errors.New("store: type mismatch")

// WormholeMerkleState is a verified Merkle root commitment plus the
// verbatim VAA bytes it was extracted from, retained so the VAA can be
// re-emitted in update-data blobs.
type WormholeMerkleState struct {
	Root     vaa.WormholeMerkleRoot
	VAABytes []byte
}

// AccumulatorMessages is a decoded batch of raw domain messages committed
// to by a WormholeMerkleRoot for the same slot.
type AccumulatorMessages struct {
	Slot     Slot
	Magic    [4]byte
	RingSize uint32
	Messages [][]byte
}

// ProofSet bundles everything needed to re-verify a single message against
// its slot's committed root. Currently just the Merkle inclusion proof.
type ProofSet struct {
	MerkleProof []merkle.ProofStep
}

// MessageState is a fully decoded, proof-carrying message produced at slot
// completion. It lives in the per-feed history until evicted.
type MessageState struct {
	Message    vaa.Message
	RawMessage []byte
	Proof      ProofSet
	Slot       Slot
	ReceivedAt int64 // unix seconds, wall clock
}

// FeedID returns the 32-byte feed identifier for price-feed message
// states; callers must not call this on a non-PriceFeedMessage.
func (m MessageState) FeedID() [32]byte {
	return m.Message.PriceFeed.FeedID
}

// PublishTime returns the message's publish_time, used for history
// ordering and RequestTime comparisons.
func (m MessageState) PublishTime() int64 {
	if m.Message.PriceFeed != nil {
		return m.Message.PriceFeed.PublishTime
	}
	return 0
}

// MessageKey identifies a per-feed history bucket: a feed id paired with
// the message type stored under it.
type MessageKey struct {
	FeedID [32]byte
	Type   vaa.MessageType
}

// MessageStateFilter selects which message types a query is interested
// in. The zero value matches only message type 0; use AnyTypeFilter to
// match every type.
type MessageStateFilter struct {
	Type    vaa.MessageType
	AnyType bool
}

// AnyTypeFilter matches every message type stored in the history.
func AnyTypeFilter() MessageStateFilter {
	return MessageStateFilter{AnyType: true}
}

// PriceFeedOnlyFilter matches only PriceFeedMessage entries, the only
// variant the query surface exposes to callers.
func PriceFeedOnlyFilter() MessageStateFilter {
	return MessageStateFilter{Type: vaa.MessageTypePriceFeed}
}

// Matches reports whether message type t satisfies the filter.
func (f MessageStateFilter) Matches(t vaa.MessageType) bool {
	return f.AnyType || f.Type == t
}

// RequestTimeKind distinguishes the two RequestTime query modes.
type RequestTimeKind int

const (
	// RequestTimeLatest selects, per key, the entry with the greatest
	// publish_time (ties broken by greatest slot).
	RequestTimeLatest RequestTimeKind = iota
	// RequestTimeFirstAfter selects, per key, the entry with the
	// smallest publish_time >= the given time (ties broken by smallest
	// slot).
	RequestTimeFirstAfter
)

// RequestTime parameterizes FetchMessageStates' point-in-time semantics.
type RequestTime struct {
	Kind RequestTimeKind
	At   time.Time // only meaningful when Kind == RequestTimeFirstAfter
}

// Latest requests the most recent entry for each key.
func Latest() RequestTime {
	return RequestTime{Kind: RequestTimeLatest}
}

// FirstAfter requests the earliest entry at or after t for each key.
func FirstAfter(t time.Time) RequestTime {
	return RequestTime{Kind: RequestTimeFirstAfter, At: t}
}
