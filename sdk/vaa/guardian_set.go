package vaa

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// GuardianSet is an ordered list of guardian signer addresses, identified
// by a monotonically increasing index. It is produced and refreshed by an
// external collaborator and is read-only from this core's point of view.
type GuardianSet struct {
	Index uint32
	Keys  []ethcommon.Address
}

// KeysAsHexStrings is handy for log fields.
func (gs *GuardianSet) KeysAsHexStrings() []string {
	out := make([]string, len(gs.Keys))
	for i, k := range gs.Keys {
		out[i] = k.Hex()
	}
	return out
}

// Quorum returns the minimum number of signatures required for this set,
// the standard Wormhole two-thirds-plus-one supermajority.
func (gs *GuardianSet) Quorum() int {
	return CalculateQuorum(len(gs.Keys))
}

// CalculateQuorum returns ⌊2N/3⌋+1 for a guardian set of size n.
func CalculateQuorum(n int) int {
	return (n*2)/3 + 1
}

// KeyIndex returns the position of addr in the set, or -1 if absent.
func (gs *GuardianSet) KeyIndex(addr ethcommon.Address) int {
	for i, k := range gs.Keys {
		if k == addr {
			return i
		}
	}
	return -1
}

// VerifySignatures checks that at least Quorum() of the listed signatures
// recover to distinct, known members of the set over digest. It does not
// care about signature ordering, but each guardian may only count once.
func (gs *GuardianSet) VerifySignatures(digest []byte, sigs []*Signature) error {
	quorum := gs.Quorum()
	if len(sigs) < quorum {
		return fmt.Errorf("insufficient signatures: have %d, need %d", len(sigs), quorum)
	}

	seen := make(map[int]bool, len(sigs))
	valid := 0
	for _, sig := range sigs {
		pubKey, err := crypto.SigToPub(digest, sig.Signature[:])
		if err != nil {
			continue
		}
		addr := crypto.PubkeyToAddress(*pubKey)

		idx := gs.KeyIndex(addr)
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		valid++
	}

	if valid < quorum {
		return fmt.Errorf("quorum not met: %d valid signatures, need %d", valid, quorum)
	}
	return nil
}
