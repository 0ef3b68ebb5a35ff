package portxlate

import (
	"testing"

	"github.com/n7ekb/axkissbridge/internal/kiss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOnChannel(ch byte) []byte {
	return []byte{kiss.FEND, ch << 4, 0x01, 0x02, kiss.FEND}
}

func TestTranslateRewritesMatchingChannel(t *testing.T) {
	out, ok := Translate(frameOnChannel(2), 2, 5)
	require.True(t, ok)
	gotCh, _ := kiss.PortAndCommand(out)
	assert.Equal(t, byte(5), gotCh)
}

func TestTranslateDropsUnrelatedChannel(t *testing.T) {
	_, ok := Translate(frameOnChannel(1), 2, 5)
	assert.False(t, ok)
}

func TestTranslateDropsWhenPortsEqual(t *testing.T) {
	_, ok := Translate(frameOnChannel(2), 2, 2)
	assert.False(t, ok)
}

func TestRemapPassAll(t *testing.T) {
	f := frameOnChannel(4)
	out, ok := Remap(f, PassAll)
	require.True(t, ok)
	assert.Equal(t, f, out)
}

func TestRemapFiltersAndRewritesToZero(t *testing.T) {
	out, ok := Remap(frameOnChannel(3), 3)
	require.True(t, ok)
	ch, _ := kiss.PortAndCommand(out)
	assert.Equal(t, byte(0), ch)

	_, ok = Remap(frameOnChannel(4), 3)
	assert.False(t, ok)
}

func TestUnremapRewritesFromZero(t *testing.T) {
	out := Unremap(frameOnChannel(0), 3)
	ch, _ := kiss.PortAndCommand(out)
	assert.Equal(t, byte(3), ch)
}

func TestUnremapPassAllLeavesUnmodified(t *testing.T) {
	f := frameOnChannel(0)
	out := Unremap(f, PassAll)
	assert.Equal(t, f, out)
}

func TestChannelFilteringScenario(t *testing.T) {
	channels := []byte{2, 3, 3, 4}
	var delivered [][]byte
	for _, ch := range channels {
		if out, ok := Remap(frameOnChannel(ch), 3); ok {
			delivered = append(delivered, out)
		}
	}
	require.Len(t, delivered, 2)
	for _, f := range delivered {
		ch, _ := kiss.PortAndCommand(f)
		assert.Equal(t, byte(0), ch)
	}
}
