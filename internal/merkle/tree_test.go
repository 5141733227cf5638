package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessages(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i), byte(i * 7), byte(i * 13)}
	}
	return out
}

func TestBuildAndVerifyEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 17} {
		msgs := rawMessages(n)
		tree := Build(msgs)

		for i, raw := range msgs {
			proof, ok := tree.Proof(i)
			require.True(t, ok)
			assert.True(t, VerifyProof(tree.Root, raw, i, proof), "n=%d i=%d", n, i)
		}
	}
}

func TestVerifyProofRejectsTamperedMessage(t *testing.T) {
	msgs := rawMessages(5)
	tree := Build(msgs)

	proof, ok := tree.Proof(2)
	require.True(t, ok)

	assert.False(t, VerifyProof(tree.Root, []byte("tampered"), 2, proof))
}

func TestVerifyProofRejectsWrongIndex(t *testing.T) {
	msgs := rawMessages(5)
	tree := Build(msgs)

	proof, ok := tree.Proof(2)
	require.True(t, ok)

	assert.False(t, VerifyProof(tree.Root, msgs[2], 3, proof))
}

func TestBuildAndCheckDetectsMismatch(t *testing.T) {
	msgs := rawMessages(4)
	_, err := BuildAndCheck(msgs, [20]byte{0xff})
	assert.Error(t, err)
}

func TestBuildAndCheckAccepts(t *testing.T) {
	msgs := rawMessages(4)
	expected := Build(msgs).Root
	tree, err := BuildAndCheck(msgs, expected)
	require.NoError(t, err)
	assert.Equal(t, expected, tree.Root)
}

func TestProofOutOfRange(t *testing.T) {
	tree := Build(rawMessages(3))
	_, ok := tree.Proof(-1)
	assert.False(t, ok)
	_, ok = tree.Proof(3)
	assert.False(t, ok)
}
