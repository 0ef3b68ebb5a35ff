package bridge

import (
	"sync/atomic"
	"time"

	"github.com/n7ekb/axkissbridge/internal/agwserver"
	"github.com/n7ekb/axkissbridge/internal/kiss"
	"github.com/n7ekb/axkissbridge/internal/logging"
	"github.com/n7ekb/axkissbridge/internal/pcapdump"
	"github.com/n7ekb/axkissbridge/internal/philflag"
	"github.com/n7ekb/axkissbridge/internal/pollbuf"
	"github.com/n7ekb/axkissbridge/internal/portxlate"
	"github.com/n7ekb/axkissbridge/internal/tcpclient"
	"github.com/n7ekb/axkissbridge/internal/tcpserver"
)

// Bridge owns exactly one logical KISS channel on one physical device:
// an endpoint (TCP server, TCP client, or a peer serial device) plus the
// per-Bridge feature flags that gate PhilFlag, dumping, raw-copy and
// Extended-KISS polling.
type Bridge struct {
	ID string

	// Channel is this Bridge's own declared serial channel (0-15), parsed
	// from its serial endpoint's "serial:ID:CH" grammar. The device
	// dispatcher filters on it unconditionally, independent of KissChan.
	Channel int

	// PeerChannel is the peer endpoint's declared channel, populated only
	// for serial-to-serial Bridges, where it differs from Channel.
	PeerChannel int

	KissChan int // -1 = pass all, 0-15 = remap to channel 0 for presentation

	PhilFlag  bool
	Dump      bool
	ParseKISS bool
	DumpAX25  bool
	RawCopy   bool
	KissCopy  bool
	AGWEnable bool
	AGWPort   uint32

	device *Device

	// At most one of PeerDevice, TCPServer and TCPClient is populated,
	// depending on the Bridge's declared endpoint. AGWServer is set in
	// addition to it when the Bridge has AGW enabled.
	PeerDevice *Device
	TCPServer  *tcpserver.Server
	TCPClient  *tcpclient.Client
	AGWServer  *agwserver.Server

	PollBuf      *pollbuf.Buffer
	PollInterval time.Duration
	PCAP         *pcapdump.Sink

	Log *logging.Logger

	terminated atomic.Bool
}

func (b *Bridge) markTerminated() {
	b.terminated.Store(true)
	if b.Log != nil {
		b.Log.Error("bridge terminated: physical device closed", "bridge", b.ID)
	}
}

// Terminated reports whether this Bridge's physical device dispatcher has
// exited after a fatal read error.
func (b *Bridge) Terminated() bool {
	return b.terminated.Load()
}

// handleRawFromSerial forwards bytes unchanged in raw-copy mode (§4.11):
// no demarcator, no codec, no PhilFlag, no channel filter, no PCAP.
func (b *Bridge) handleRawFromSerial(data []byte) {
	switch {
	case b.TCPServer != nil:
		b.TCPServer.Slots.Broadcast(data, -1)
	case b.TCPClient != nil:
		b.TCPClient.Slots.Broadcast(data, -1)
	case b.PeerDevice != nil:
		b.PeerDevice.Write(data)
	}
}

// handleFrameFromSerial implements the non-raw half of §4.9 steps 2-6 for
// one complete KISS frame read from this Bridge's device, for Bridges
// presenting toward TCP/AGW rather than another serial device. The caller
// (the device dispatcher) has already filtered the frame to this Bridge's
// own declared Channel. A KissChan other than PassAll additionally drops
// frames whose channel differs from KissChan and presents the rest as
// channel 0 (portxlate.Remap).
func (b *Bridge) handleFrameFromSerial(frame []byte) {
	remapped, ok := portxlate.Remap(frame, b.KissChan)
	if !ok {
		return
	}
	if b.PhilFlag {
		remapped = philflag.SerialToTCP(remapped)
	}
	if b.PCAP != nil && b.Dump {
		b.PCAP.WritePacket(payloadOf(remapped))
	}
	if b.PollBuf != nil {
		if err := b.PollBuf.Push(remapped); err != nil {
			if b.Log != nil {
				b.Log.Warn("poll buffer overflow, dropping frame", "bridge", b.ID)
			}
		}
		return
	}

	switch {
	case b.TCPServer != nil:
		b.TCPServer.Slots.Broadcast(remapped, -1)
	case b.TCPClient != nil:
		b.TCPClient.Slots.Broadcast(remapped, -1)
	}

	if b.AGWEnable && b.AGWServer != nil {
		b.AGWServer.EmitFromSerial(b.AGWPort, payloadOf(remapped))
	}
}

// handleSerialToSerial implements a serial-to-serial Bridge's data path: a
// frame read on sourceCh is translated to destCh and written to target,
// the device on the opposite side of the Bridge from where it was read.
// sourceCh/destCh name which side the frame is travelling, so the same
// Bridge can be driven from either of its two attached devices.
func (b *Bridge) handleSerialToSerial(frame []byte, sourceCh, destCh int, target *Device) {
	out, ok := portxlate.Translate(frame, byte(sourceCh), byte(destCh))
	if !ok {
		out = frame
	}
	if b.PhilFlag {
		out = philflag.SerialToTCP(out)
	}
	if b.PCAP != nil && b.Dump {
		b.PCAP.WritePacket(payloadOf(out))
	}
	if target != nil {
		if err := target.Write(out); err != nil && b.Log != nil {
			b.Log.Error("serial write error", "bridge", b.ID, "err", err)
		}
	}
}

// handleFrameFromNetwork implements the TCP/AGW->serial half of the
// pipeline: remap back to the physical channel, apply PhilFlag, mirror to
// other clients if kiss_copy is set, then write to the device (or its
// peer, for serial-to-serial Bridges).
func (b *Bridge) handleFrameFromNetwork(slot int, frame []byte) {
	if b.terminated.Load() {
		return
	}
	out := portxlate.Unremap(frame, b.KissChan)
	if b.PhilFlag {
		out = philflag.TCPToSerial(out)
	}

	if b.KissCopy {
		switch {
		case b.TCPServer != nil:
			b.TCPServer.Slots.Broadcast(out, slot)
		case b.TCPClient != nil:
			b.TCPClient.Slots.Broadcast(out, slot)
		}
	}

	target := b.device
	if b.PeerDevice != nil {
		target = b.PeerDevice
	}
	if target != nil {
		if err := target.Write(out); err != nil && b.Log != nil {
			b.Log.Error("serial write error", "bridge", b.ID, "err", err)
		}
	}
}

// handleRawFromNetwork mirrors handleFrameFromNetwork for raw-copy
// Bridges: bytes pass straight through.
func (b *Bridge) handleRawFromNetwork(slot int, data []byte) {
	target := b.device
	if b.PeerDevice != nil {
		target = b.PeerDevice
	}
	if target != nil {
		target.Write(data)
	}
}

// handleAGWTransmit is the 'K' raw-data AGWPE command path: wrap the
// payload as a KISS data frame and write it to the physical device,
// applying PhilFlag if enabled. It is registered with the shared AGW
// server under this Bridge's AGW port number.
func (b *Bridge) handleAGWTransmit(payload []byte) {
	channel := b.KissChan
	if channel < 0 {
		channel = 0
	}
	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, kiss.FEND, byte(channel)<<4)
	frame = append(frame, payload...)
	frame = append(frame, kiss.FEND)
	if b.PhilFlag {
		frame = philflag.SerialToTCP(frame)
	}
	if b.device != nil {
		b.device.Write(frame)
	}
}

// payloadOf strips the leading FEND+type byte and trailing FEND from a
// complete frame, leaving the AX.25 payload PCAP and AGWPE both want.
func payloadOf(frame []byte) []byte {
	if len(frame) < 3 {
		return nil
	}
	return frame[2 : len(frame)-1]
}
