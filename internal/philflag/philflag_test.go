package philflag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerialToTCPEscapesInternalFEND(t *testing.T) {
	in := []byte{0xC0, 0x00, 0xC0, 0x42, 0xC0}
	out := SerialToTCP(in)
	assert.Equal(t, []byte{0xC0, 0x00, 0xDB, 0xDC, 0x42, 0xC0}, out)
}

func TestSerialToTCPPreservesDelimiters(t *testing.T) {
	in := []byte{0xC0, 0x01, 0x02, 0x03, 0xC0}
	out := SerialToTCP(in)
	assert.Equal(t, byte(0xC0), out[0])
	assert.Equal(t, byte(0xC0), out[len(out)-1])
}

func TestTCPToSerialEscapesC(t *testing.T) {
	in := []byte("TC0\n")
	out := TCPToSerial(in)
	assert.Equal(t, []byte{0x54, 0xDB, 0x43, 0x30, 0x0A}, out)
}

func TestTCPToSerialEscapesLowercaseC(t *testing.T) {
	in := []byte("abc")
	out := TCPToSerial(in)
	assert.Equal(t, []byte{'a', 'b', 0xDB, 'c'}, out)
}
