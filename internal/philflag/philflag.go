// Package philflag implements the direction-specific byte substitutions
// that work around a TASCO-chipset TNC bug: it emits unescaped FEND bytes
// inside frame payloads, and it misparses the literal byte sequence
// "TC0\n" arriving from the host.
package philflag

import "github.com/n7ekb/axkissbridge/internal/kiss"

// SerialToTCP rewrites every FEND inside frame's payload (the bytes
// strictly between the opening and closing delimiters) to FESC TFEND. The
// delimiting FENDs themselves are left alone. frame must be a complete,
// well-formed KISS frame of at least two bytes.
func SerialToTCP(frame []byte) []byte {
	if len(frame) < 2 {
		return frame
	}
	out := make([]byte, 0, len(frame)+4)
	out = append(out, frame[0])
	inner := frame[1 : len(frame)-1]
	for _, b := range inner {
		if b == kiss.FEND {
			out = append(out, kiss.FESC, kiss.TFEND)
			continue
		}
		out = append(out, b)
	}
	out = append(out, frame[len(frame)-1])
	return out
}

// TCPToSerial scans a raw byte stream (not frame-structured) and prefixes
// every ASCII 'C' or 'c' with FESC, preventing the TNC from recognising
// the embedded command trigger.
func TCPToSerial(data []byte) []byte {
	out := make([]byte, 0, len(data)+4)
	for _, b := range data {
		if b == 'C' || b == 'c' {
			out = append(out, kiss.FESC)
		}
		out = append(out, b)
	}
	return out
}
