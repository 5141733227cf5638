package merkle

import "fmt"

// BuildAndCheck builds the Merkle tree over raw messages and confirms the
// resulting root matches expectedRoot. It returns the tree (so per-message
// proofs can be extracted) or an error identifying a root mismatch, which
// callers must treat as a fatal integrity failure for the slot.
func BuildAndCheck(rawMessages [][]byte, expectedRoot [20]byte) (*Tree, error) {
	tree := Build(rawMessages)
	if tree.Root != expectedRoot {
		return nil, fmt.Errorf("merkle: computed root %x does not match committed root %x", tree.Root, expectedRoot)
	}
	return tree, nil
}
