// Package verifier validates raw VAA bytes against the currently trusted
// guardian sets before the ingestion coordinator acts on their payload.
package verifier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

// ErrNonApplicable signals a VAA that is not meant for this core at all
// (wrong emitter). Callers should silently ignore it.
var ErrNonApplicable = errors.New("verifier: non-applicable")

// ErrUnverifiable signals a VAA whose guardian set is unknown or whose
// signatures fail quorum. Callers should log and drop it.
var ErrUnverifiable = errors.New("verifier: unverifiable")

// GuardianSets holds the currently trusted guardian sets, keyed by index,
// behind its own lock — independent from Storage's locks per the
// concurrency model.
type GuardianSets struct {
	mu   sync.RWMutex
	sets map[uint32]vaa.GuardianSet
}

// NewGuardianSets returns an empty guardian-set table.
func NewGuardianSets() *GuardianSets {
	return &GuardianSets{sets: make(map[uint32]vaa.GuardianSet)}
}

// Update overwrites any prior set at the given index.
func (g *GuardianSets) Update(index uint32, set vaa.GuardianSet) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sets[index] = set
}

// Get returns the guardian set at index, if known.
func (g *GuardianSets) Get(index uint32) (vaa.GuardianSet, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set, ok := g.sets[index]
	return set, ok
}

// Verifier checks raw VAA bytes against the configured accumulator
// emitter and the current guardian sets.
type Verifier struct {
	guardianSets   *GuardianSets
	emitterChain   vaa.ChainID
	emitterAddress vaa.Address
}

// New returns a Verifier that only accepts VAAs from the given emitter
// chain/address, checked against sets.
func New(sets *GuardianSets, emitterChain vaa.ChainID, emitterAddress vaa.Address) *Verifier {
	return &Verifier{
		guardianSets:   sets,
		emitterChain:   emitterChain,
		emitterAddress: emitterAddress,
	}
}

// Applicable reports whether parsed targets this core's configured
// accumulator emitter. VAAs from any other emitter are a normal ignore,
// not an error.
func (v *Verifier) Applicable(parsed *vaa.VAA) bool {
	return parsed.EmitterChain == v.emitterChain && parsed.EmitterAddress == v.emitterAddress
}

// Verify parses raw and, if it targets this core's configured emitter,
// checks its signatures against the referenced guardian set at quorum. It
// returns the parsed VAA on success, ErrNonApplicable for a foreign
// emitter, or ErrUnverifiable for an unknown guardian set or a failed
// quorum check.
func (v *Verifier) Verify(raw []byte) (*vaa.VAA, error) {
	parsed, err := vaa.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnverifiable, err)
	}

	if !v.Applicable(parsed) {
		return nil, ErrNonApplicable
	}

	set, ok := v.guardianSets.Get(parsed.GuardianSetIndex)
	if !ok {
		return nil, fmt.Errorf("%w: unknown guardian set %d", ErrUnverifiable, parsed.GuardianSetIndex)
	}

	digest := parsed.SigningDigest()
	if err := set.VerifySignatures(digest.Bytes(), parsed.Signatures); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnverifiable, err)
	}

	return parsed, nil
}

// PeekEmitter parses raw without verifying signatures, just enough to
// inspect emitter_chain/emitter_address/sequence for the coordinator's
// pre-verification dedup and emitter-mismatch checks.
func PeekEmitter(raw []byte) (*vaa.VAA, error) {
	return vaa.Unmarshal(raw)
}
