package agwpe

import "github.com/n7ekb/axkissbridge/internal/kiss"

// VersionString is returned as the payload of a 'G' port-info response.
const VersionString = "axkissbridge AGWPE gateway\x00"

// Capabilities is the 12-byte capability vector returned for a 'g'
// request: can-monitor, can-transmit, can-hear, the rest reserved.
var Capabilities = [12]byte{1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// ClientState tracks the per-connection registration the 'X'/'x'/'M'/'m'
// commands mutate.
type ClientState struct {
	Callsign string
	Monitor  bool
}

// HandleCommand processes one inbound AGWPE frame against a client's
// state, returning zero or more frames to send back to that client and
// the raw AX.25 payload to transmit on the serial side, if any (only for
// KindRawData).
func HandleCommand(state *ClientState, in Frame) (responses []Frame, toTransmit []byte, transmitChannel byte) {
	switch in.Header.Kind {
	case KindPortInfo:
		return []Frame{{Header: Header{Kind: KindPortInfo}, Data: []byte(VersionString)}}, nil, 0
	case KindCapability:
		return []Frame{{Header: Header{Kind: KindCapability}, Data: Capabilities[:]}}, nil, 0
	case KindRegister:
		state.Callsign = UnpackCallsign(in.Header.CallFrom)
		return []Frame{{Header: Header{Kind: KindRegister}}}, nil, 0
	case KindUnregister:
		state.Callsign = ""
		return nil, nil, 0
	case KindMonitorOn:
		state.Monitor = true
		return nil, nil, 0
	case KindMonitorOff:
		state.Monitor = false
		return nil, nil, 0
	case KindRawData:
		return nil, in.Data, byte(in.Header.Port)
	default:
		return nil, nil, 0
	}
}

// WrapForTransmit builds the serial KISS data frame for a 'K' raw-data
// AGWPE command's payload, per S5: FEND (chan<<4) payload FEND.
func WrapForTransmit(channel byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, kiss.FEND, channel<<4)
	out = append(out, payload...)
	out = append(out, kiss.FEND)
	return out
}

// EmitFromSerial builds the AGWPE frame to deliver to one client for a
// KISS data frame received from serial. kind is 'U' when the client has
// monitor enabled, 'K' otherwise, per the serial->AGWPE emit rule.
func EmitFromSerial(channel byte, payload []byte, monitorEnabled bool) Frame {
	kind := KindRawData
	if monitorEnabled {
		kind = KindUnprotoData
	}
	var callFrom, callTo [10]byte
	if len(payload) >= 14 {
		callFrom = PackCallsign(DecodeAddress(payload[7:14]))
		callTo = PackCallsign(DecodeAddress(payload[0:7]))
	}
	return Frame{
		Header: Header{
			Port:     uint32(channel),
			Kind:     kind,
			PID:      0,
			CallFrom: callFrom,
			CallTo:   callTo,
		},
		Data: payload,
	}
}
