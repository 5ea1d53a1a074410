package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocRunFirstFit(t *testing.T) {
	buf := make([]byte, ByteCount(32))
	bm := New(buf, 32, false)

	idx := bm.AllocRun(false, 4)
	require.Equal(t, 0, idx)
	for i := 0; i < 4; i++ {
		assert.True(t, bm.Get(i))
	}

	idx2 := bm.AllocRun(false, 4)
	assert.Equal(t, 4, idx2)
}

func TestAllocRunSkipsPartialMatch(t *testing.T) {
	buf := make([]byte, ByteCount(16))
	bm := New(buf, 16, false)
	// Mark bit 2 allocated so a run of 3 starting at 0 fails and the
	// search must resume at bit 3, not restart at bit 1.
	bm.SetRun(2, 1, true)

	idx := bm.AllocRun(false, 3)
	assert.Equal(t, 3, idx)
}

func TestAllocRunOutOfSpace(t *testing.T) {
	buf := make([]byte, ByteCount(8))
	bm := New(buf, 8, false)
	require.NotEqual(t, -1, bm.AllocRun(false, 8))
	assert.Equal(t, -1, bm.AllocRun(false, 1))
}

func TestFreeThenReallocate(t *testing.T) {
	buf := make([]byte, ByteCount(8))
	bm := New(buf, 8, false)
	idx := bm.AllocRun(false, 2)
	require.Equal(t, 0, idx)
	bm.SetRun(idx, 2, false)
	assert.Equal(t, 0, bm.AllocRun(false, 2))
}
