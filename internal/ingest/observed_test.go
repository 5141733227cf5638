package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservedVAASeqsInsertAndContains(t *testing.T) {
	o := NewObservedVAASeqs()
	assert.False(t, o.Contains(5))
	o.Insert(5)
	assert.True(t, o.Contains(5))
}

func TestObservedVAASeqsInsertIsIdempotent(t *testing.T) {
	o := NewObservedVAASeqs()
	o.Insert(5)
	o.Insert(5)
	assert.Equal(t, 1, o.Len())
}

func TestObservedVAASeqsEvictsSmallestOnOverflow(t *testing.T) {
	o := NewObservedVAASeqs()
	for seq := uint64(1); seq <= observedCacheSize; seq++ {
		o.Insert(seq)
	}
	assert.Equal(t, observedCacheSize, o.Len())
	assert.True(t, o.Contains(1))

	o.Insert(observedCacheSize + 1)

	assert.Equal(t, observedCacheSize, o.Len())
	assert.False(t, o.Contains(1), "smallest sequence should have been evicted")
	assert.True(t, o.Contains(observedCacheSize+1))
	assert.True(t, o.Contains(2))
}
