// Package merkle builds the truncated-keccak(160) Merkle tree committed to
// by a WormholeMerkleRoot and proves individual messages against it.
package merkle

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// leafPrefix/nodePrefix domain-separate leaf hashes from internal node
// hashes, the standard defense against second-preimage attacks on Merkle
// trees built over variable-length leaves.
const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// hash20 truncates a keccak256 digest to its first 20 bytes, the fixed
// hash this tree shape uses throughout.
func hash20(data ...[]byte) [20]byte {
	var out [20]byte
	full := crypto.Keccak256(data...)
	copy(out[:], full[:20])
	return out
}

func leafHash(raw []byte) [20]byte {
	return hash20([]byte{leafPrefix}, raw)
}

func nodeHash(left, right [20]byte) [20]byte {
	return hash20([]byte{nodePrefix}, left[:], right[:])
}

// Tree is a constructed Merkle tree over an ordered list of raw messages.
type Tree struct {
	leaves [][20]byte
	layers [][][20]byte
	Root   [20]byte
}

// Build constructs a Tree over raw, an ordered list of raw message byte
// strings, using a fixed binary shape: odd nodes at a layer are promoted
// unchanged to the next layer (the same shape the upstream emitter uses
// to compute its committed root).
func Build(raw [][]byte) *Tree {
	leaves := make([][20]byte, len(raw))
	for i, r := range raw {
		leaves[i] = leafHash(r)
	}

	layers := [][][20]byte{leaves}
	current := leaves
	for len(current) > 1 {
		next := make([][20]byte, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, nodeHash(current[i], current[i+1]))
			} else {
				next = append(next, current[i])
			}
		}
		layers = append(layers, next)
		current = next
	}

	var root [20]byte
	if len(current) == 1 {
		root = current[0]
	}

	return &Tree{leaves: leaves, layers: layers, Root: root}
}

// ProofStep is one level of an inclusion path. HasSibling is false for a
// node promoted unchanged to the next layer (an odd node with nothing to
// pair against); in that case Sibling is not hashed in.
type ProofStep struct {
	Sibling    [20]byte
	HasSibling bool
}

// Proof returns the sibling-hash inclusion path for leaf i, one step per
// tree layer, root-bound order.
func (t *Tree) Proof(i int) ([]ProofStep, bool) {
	if i < 0 || i >= len(t.leaves) {
		return nil, false
	}

	proof := make([]ProofStep, 0, len(t.layers)-1)
	idx := i
	for layer := 0; layer < len(t.layers)-1; layer++ {
		nodes := t.layers[layer]
		var siblingIdx int
		if idx%2 == 0 {
			siblingIdx = idx + 1
		} else {
			siblingIdx = idx - 1
		}
		if siblingIdx < len(nodes) {
			proof = append(proof, ProofStep{Sibling: nodes[siblingIdx], HasSibling: true})
		} else {
			proof = append(proof, ProofStep{HasSibling: false})
		}
		idx /= 2
	}
	return proof, true
}

// VerifyProof recomputes the root from raw and proof and reports whether
// it matches root.
func VerifyProof(root [20]byte, raw []byte, leafIndex int, proof []ProofStep) bool {
	current := leafHash(raw)
	idx := leafIndex
	for _, step := range proof {
		if step.HasSibling {
			if idx%2 == 0 {
				current = nodeHash(current, step.Sibling)
			} else {
				current = nodeHash(step.Sibling, current)
			}
		}
		idx /= 2
	}
	return current == root
}
