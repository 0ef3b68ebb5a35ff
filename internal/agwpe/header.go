// Package agwpe implements the AGWPE wire protocol: the fixed 36-byte
// header, parsing of back-to-back frames out of a TCP byte stream, and
// the command handlers that translate between AGWPE frames and KISS
// frames on the serial side.
package agwpe

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed length of an AGWPE header in bytes.
const HeaderSize = 36

// Command kind bytes.
const (
	KindPortInfo    byte = 'G'
	KindCapability  byte = 'g'
	KindRegister    byte = 'X'
	KindUnregister  byte = 'x'
	KindMonitorOn   byte = 'M'
	KindMonitorOff  byte = 'm'
	KindRawData     byte = 'K'
	KindUnprotoData byte = 'U'
)

// ErrShortHeader is returned by UnpackHeader when fewer than HeaderSize
// bytes are available.
var ErrShortHeader = errors.New("agwpe: short header")

// Header is the fixed-layout little-endian AGWPE frame header. It is
// packed and unpacked with explicit byte offsets, not binary.Write
// against this struct, since Go struct layout is not a wire format.
type Header struct {
	Port     uint32
	Kind     byte
	PID      byte
	CallFrom [10]byte
	CallTo   [10]byte
	DataLen  uint32
}

// Pack serialises h into exactly HeaderSize bytes.
func (h Header) Pack() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Port)
	// bytes 4:8 reserved, left zero
	buf[8] = h.Kind
	// byte 9 reserved
	buf[10] = h.PID
	// byte 11 reserved
	copy(buf[12:22], h.CallFrom[:])
	copy(buf[22:32], h.CallTo[:])
	binary.LittleEndian.PutUint32(buf[32:36], h.DataLen)
	return buf
}

// UnpackHeader parses the first HeaderSize bytes of buf into a Header.
func UnpackHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	var h Header
	h.Port = binary.LittleEndian.Uint32(buf[0:4])
	h.Kind = buf[8]
	h.PID = buf[10]
	copy(h.CallFrom[:], buf[12:22])
	copy(h.CallTo[:], buf[22:32])
	h.DataLen = binary.LittleEndian.Uint32(buf[32:36])
	return h, nil
}

// PackCallsign right-pads a callsign with NULs into a 10-byte field.
func PackCallsign(call string) [10]byte {
	var out [10]byte
	copy(out[:], call)
	return out
}

// UnpackCallsign trims trailing NULs and spaces from a 10-byte field.
func UnpackCallsign(field [10]byte) string {
	n := len(field)
	for n > 0 && (field[n-1] == 0 || field[n-1] == ' ') {
		n--
	}
	return string(field[:n])
}

// Frame is a parsed AGWPE message: header plus its variable-length
// payload.
type Frame struct {
	Header Header
	Data   []byte
}

// Pack serialises the frame to its wire bytes.
func (f Frame) Pack() []byte {
	h := f.Header
	h.DataLen = uint32(len(f.Data))
	out := h.Pack()
	if len(f.Data) > 0 {
		out = append(out, f.Data...)
	}
	return out
}

// ParseStream extracts every complete back-to-back AGWPE frame out of
// buf. It returns the parsed frames and the number of leading bytes of
// buf that were consumed; callers should retain buf[consumed:] for the
// next read. A frame whose header claims more payload than is currently
// buffered is left unconsumed rather than parsed partially.
func ParseStream(buf []byte) (frames []Frame, consumed int) {
	for {
		remaining := buf[consumed:]
		if len(remaining) < HeaderSize {
			return frames, consumed
		}
		h, err := UnpackHeader(remaining)
		if err != nil {
			return frames, consumed
		}
		need := HeaderSize + int(h.DataLen)
		if len(remaining) < need {
			return frames, consumed
		}
		data := make([]byte, h.DataLen)
		copy(data, remaining[HeaderSize:need])
		frames = append(frames, Frame{Header: h, Data: data})
		consumed += need
	}
}
