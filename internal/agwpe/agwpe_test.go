package agwpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderPackUnpackRoundTrip(t *testing.T) {
	h := Header{
		Port:     2,
		Kind:     KindRawData,
		PID:      0xF0,
		CallFrom: PackCallsign("N7EKB"),
		CallTo:   PackCallsign("WIDE2-1"),
		DataLen:  5,
	}
	buf := h.Pack()
	require.Len(t, buf, HeaderSize)

	got, err := UnpackHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h.Port, got.Port)
	assert.Equal(t, h.Kind, got.Kind)
	assert.Equal(t, h.PID, got.PID)
	assert.Equal(t, h.CallFrom, got.CallFrom)
	assert.Equal(t, h.CallTo, got.CallTo)
}

func TestUnpackHeaderShort(t *testing.T) {
	_, err := UnpackHeader(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestParseStreamBackToBack(t *testing.T) {
	f1 := Frame{Header: Header{Kind: KindPortInfo}}
	f2 := Frame{Header: Header{Kind: KindCapability}}
	stream := append(f1.Pack(), f2.Pack()...)

	frames, consumed := ParseStream(stream)
	require.Len(t, frames, 2)
	assert.Equal(t, len(stream), consumed)
	assert.Equal(t, byte(KindPortInfo), frames[0].Header.Kind)
	assert.Equal(t, byte(KindCapability), frames[1].Header.Kind)
}

func TestParseStreamWaitsForMoreBytes(t *testing.T) {
	f := Frame{Header: Header{Kind: KindRawData, DataLen: 4}, Data: []byte{1, 2, 3, 4}}
	full := f.Pack()
	partial := full[:len(full)-2]

	frames, consumed := ParseStream(partial)
	assert.Empty(t, frames)
	assert.Equal(t, 0, consumed)
}

func TestHandleCommandPortInfo(t *testing.T) {
	state := &ClientState{}
	in := Frame{Header: Header{Kind: KindPortInfo}}
	resp, tx, _ := HandleCommand(state, in)
	require.Len(t, resp, 1)
	assert.Equal(t, byte(KindPortInfo), resp[0].Header.Kind)
	assert.Nil(t, tx)
}

func TestHandleCommandCapability(t *testing.T) {
	state := &ClientState{}
	resp, _, _ := HandleCommand(state, Frame{Header: Header{Kind: KindCapability}})
	require.Len(t, resp, 1)
	assert.Equal(t, Capabilities[:], resp[0].Data)
}

func TestHandleCommandRegisterUnregister(t *testing.T) {
	state := &ClientState{}
	in := Frame{Header: Header{Kind: KindRegister, CallFrom: PackCallsign("N7EKB")}}
	_, _, _ = HandleCommand(state, in)
	assert.Equal(t, "N7EKB", state.Callsign)

	HandleCommand(state, Frame{Header: Header{Kind: KindUnregister}})
	assert.Equal(t, "", state.Callsign)
}

func TestHandleCommandMonitorToggle(t *testing.T) {
	state := &ClientState{}
	HandleCommand(state, Frame{Header: Header{Kind: KindMonitorOn}})
	assert.True(t, state.Monitor)
	HandleCommand(state, Frame{Header: Header{Kind: KindMonitorOff}})
	assert.False(t, state.Monitor)
}

func TestHandleCommandRawDataScenario(t *testing.T) {
	state := &ClientState{}
	payload := []byte{1, 2, 3, 4}
	in := Frame{Header: Header{Kind: KindRawData, Port: 0, DataLen: uint32(len(payload))}, Data: payload}
	_, tx, ch := HandleCommand(state, in)
	require.Equal(t, payload, tx)

	wrapped := WrapForTransmit(ch, tx)
	assert.Equal(t, []byte{0xC0, 0x00, 1, 2, 3, 4, 0xC0}, wrapped)
}

func TestAddressEncodeDecodeRoundTrip(t *testing.T) {
	addr := EncodeAddress("WIDE2", 1, true)
	got := DecodeAddress(addr[:])
	assert.Equal(t, "WIDE2-1", got)
	assert.True(t, LastAddress(addr[:]))
}

func TestAddressDecodeZeroSSID(t *testing.T) {
	addr := EncodeAddress("N7EKB", 0, false)
	got := DecodeAddress(addr[:])
	assert.Equal(t, "N7EKB", got)
	assert.False(t, LastAddress(addr[:]))
}
