package merkle

import (
	"golang.org/x/exp/slices"
)

// Selected is the minimal shape ConstructUpdateData needs for one chosen
// message: which slot it came from, the raw bytes to re-hash, and its
// precomputed inclusion proof. Callers adapt their own message-state type
// into this one, keeping this package free of a dependency on the store.
type Selected struct {
	Slot       uint64
	RawMessage []byte
	Proof      []ProofStep
}

// Update bundles one (raw_message, proof) tuple for a single selected
// message.
type Update struct {
	RawMessage []byte
	Proof      []ProofStep
}

// UpdateData is one externally consumable blob: the verbatim VAA bytes
// for a slot plus every selected update from that slot.
type UpdateData struct {
	Slot     uint64
	VAABytes []byte
	Updates  []Update
}

// ConstructUpdateData groups selection (possibly spanning multiple slots)
// into one UpdateData blob per distinct slot, in ascending slot order.
// vaaBytesForSlot resolves a slot's verbatim VAA bytes; selection entries
// referencing a slot with no resolvable VAA bytes are skipped.
func ConstructUpdateData(selection []Selected, vaaBytesForSlot func(uint64) ([]byte, bool)) []UpdateData {
	bySlot := make(map[uint64][]Selected)
	for _, sel := range selection {
		bySlot[sel.Slot] = append(bySlot[sel.Slot], sel)
	}

	slots := make([]uint64, 0, len(bySlot))
	for slot := range bySlot {
		slots = append(slots, slot)
	}
	slices.Sort(slots)

	blobs := make([]UpdateData, 0, len(slots))
	for _, slot := range slots {
		vaaBytes, ok := vaaBytesForSlot(slot)
		if !ok {
			continue
		}

		sels := bySlot[slot]
		updates := make([]Update, 0, len(sels))
		for _, sel := range sels {
			updates = append(updates, Update{RawMessage: sel.RawMessage, Proof: sel.Proof})
		}

		blobs = append(blobs, UpdateData{Slot: slot, VAABytes: vaaBytes, Updates: updates})
	}

	return blobs
}
