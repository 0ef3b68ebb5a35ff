package pollbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAndDrainPreservesOrder(t *testing.T) {
	b := New(10, MinMaxBytes)
	require.NoError(t, b.Push([]byte{1}))
	require.NoError(t, b.Push([]byte{2}))
	require.NoError(t, b.Push([]byte{3}))

	got := b.DrainAll()
	assert.Equal(t, [][]byte{{1}, {2}, {3}}, got)
	assert.Equal(t, 0, b.Size())
}

func TestOverflowByFrameCountDropsNewest(t *testing.T) {
	b := New(2, MinMaxBytes)
	require.NoError(t, b.Push([]byte{1}))
	require.NoError(t, b.Push([]byte{2}))
	err := b.Push([]byte{3})
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 2, b.Size())
}

func TestOverflowByByteCountDropsNewest(t *testing.T) {
	b := New(DefaultMaxFrames, MinMaxBytes)
	big := make([]byte, MinMaxBytes)
	require.NoError(t, b.Push(big))
	err := b.Push([]byte{1})
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestClampByteBound(t *testing.T) {
	assert.Equal(t, MinMaxBytes, ClampByteBound(10))
	assert.Equal(t, MaxMaxBytes, ClampByteBound(10_000_000))
	assert.Equal(t, 5000, ClampByteBound(5000))
}

func TestSizeNeverNegativeAfterRepeatedDrain(t *testing.T) {
	b := New(5, MinMaxBytes)
	assert.Equal(t, 0, b.Size())
	b.DrainAll()
	assert.GreaterOrEqual(t, b.Size(), 0)
}
