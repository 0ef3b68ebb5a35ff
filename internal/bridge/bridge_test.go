package bridge

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/n7ekb/axkissbridge/internal/kiss"
	"github.com/n7ekb/axkissbridge/internal/portxlate"
	"github.com/n7ekb/axkissbridge/internal/tcpio"
	"github.com/n7ekb/axkissbridge/internal/tcpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKissCopyBroadcastsToOtherClientOnly covers the KISSCOPY scenario:
// two TCP clients attached to one Bridge with kiss_copy enabled; a frame
// from one client is mirrored to the other and not echoed back to its
// origin. No physical device is attached, so the write-to-serial half of
// handleFrameFromNetwork is a no-op here.
func TestKissCopyBroadcastsToOtherClientOnly(t *testing.T) {
	slots := tcpio.New(2, nil)
	connA, peerA := net.Pipe()
	connB, peerB := net.Pipe()
	slotA, ok := slots.TryInstall(connA)
	assert.True(t, ok)
	_, ok = slots.TryInstall(connB)
	assert.True(t, ok)

	b := &Bridge{
		ID:       "test",
		KissChan: portxlate.PassAll,
		KissCopy: true,
		TCPServer: &tcpserver.Server{
			Slots: slots,
		},
	}

	frame := []byte{0xC0, 0x00, 'h', 'i', 0xC0}

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := peerB.Read(buf)
		received <- buf[:n]
	}()

	b.handleFrameFromNetwork(slotA, frame)

	select {
	case got := <-received:
		assert.Equal(t, frame, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mirrored frame")
	}

	peerA.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 16)
	_, err := peerA.Read(buf)
	assert.Error(t, err, "origin slot must not receive its own frame back")
}

// TestDeviceDispatchFiltersByDeclaredChannel covers two Bridges sharing
// one physical device at different declared channels, the
// "serial:0000:0" / "serial:0000:1" scenario: a frame on channel 0 must
// reach only the Bridge declared on channel 0, regardless of the
// optional kiss_chan remap hint on either Bridge.
func TestDeviceDispatchFiltersByDeclaredChannel(t *testing.T) {
	slots0 := tcpio.New(1, nil)
	conn0, peer0 := net.Pipe()
	_, ok := slots0.TryInstall(conn0)
	assert.True(t, ok)

	slots1 := tcpio.New(1, nil)
	conn1, peer1 := net.Pipe()
	_, ok = slots1.TryInstall(conn1)
	assert.True(t, ok)

	bridge0 := &Bridge{ID: "0000", Channel: 0, KissChan: portxlate.PassAll, TCPServer: &tcpserver.Server{Slots: slots0}}
	bridge1 := &Bridge{ID: "0001", Channel: 1, KissChan: portxlate.PassAll, TCPServer: &tcpserver.Server{Slots: slots1}}

	d := &Device{ID: "shared"}
	d.Attach(bridge0)
	d.Attach(bridge1)

	frameOnChannel0 := []byte{0xC0, 0x00, 'h', 'i', 0xC0}
	d.dispatchFrame(frameOnChannel0)

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := peer0.Read(buf)
		received <- buf[:n]
	}()
	select {
	case got := <-received:
		assert.Equal(t, frameOnChannel0, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel-0 bridge to receive its frame")
	}

	peer1.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 16)
	_, err := peer1.Read(buf)
	assert.Error(t, err, "bridge declared on channel 1 must not receive a channel-0 frame")
}

// fakePort is a serialPort test double that records every Write.
type fakePort struct {
	mu      sync.Mutex
	written [][]byte
}

func (f *fakePort) Read(buf []byte) (int, error) { return 0, io.EOF }
func (f *fakePort) Close() error                 { return nil }
func (f *fakePort) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return len(data), nil
}

// TestSerialToSerialTranslatesBetweenDistinctChannels covers the
// "serial:0000:1 <-> serial:0001:0" scenario: a single Bridge joining two
// physical devices on different declared channels must translate the
// frame's channel number when relaying it to its peer, not just forward
// it as-is.
func TestSerialToSerialTranslatesBetweenDistinctChannels(t *testing.T) {
	deviceA := &Device{ID: "0000"}
	portB := &fakePort{}
	deviceB := &Device{ID: "0001", port: portB}

	b := &Bridge{ID: "0000", Channel: 1, PeerChannel: 0}
	deviceA.Attach(b)
	b.PeerDevice = deviceB
	deviceB.bridges = append(deviceB.bridges, b)

	frameOnChannel1 := []byte{0xC0, 0x10, 'h', 'i', 0xC0}
	deviceA.dispatchFrame(frameOnChannel1)

	require.Len(t, portB.written, 1)
	gotCh, _ := kiss.PortAndCommand(portB.written[0])
	assert.Equal(t, byte(0), gotCh, "frame forwarded to deviceB must carry its declared channel, not channel 1")
}
