// Package bridge implements the serial reader/dispatcher (C10), the
// Bridge (C11) and the Bridge set (C12): the top-level wiring that turns
// a resolved configuration into a set of running physical devices and
// the Bridges that share them.
package bridge

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/n7ekb/axkissbridge/internal/kiss"
	"github.com/n7ekb/axkissbridge/internal/logging"
	"github.com/n7ekb/axkissbridge/internal/serialport"
)

// readTimeout bounds each serial read so the dispatcher can distinguish
// "nothing arrived" from a real failure per §4.9.
const readTimeout = 100 * time.Millisecond

// idleSleep is the pause a timed-out read takes before trying again, to
// avoid busy-spinning the dispatcher.
const idleSleep = 10 * time.Millisecond

// serialPort is the narrow read/write/close surface Device needs from a
// physical handle. *serialport.Port satisfies it; tests substitute a fake
// to exercise dispatch and write behavior without a real TNC attached.
type serialPort interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Close() error
}

// Device is one physical TNC: a shared serial handle, the single reader
// task that owns it, and every Bridge declared on it.
type Device struct {
	ID   string
	Path string

	port    serialPort
	writeMu sync.Mutex

	bridges []*Bridge
	log     *logging.Logger
}

// Open opens the underlying serial port with parameters forced to 8N1
// unless every Bridge on the device is raw-copy.
func Open(id, path string, params serialport.Params, allKISS bool, log *logging.Logger) (*Device, error) {
	if allKISS {
		params = serialport.ForceKISSDefaults(params)
	}
	port, err := serialport.Open(path, params, readTimeout)
	if err != nil {
		return nil, err
	}
	return &Device{ID: id, Path: path, port: port, log: log}, nil
}

// Attach registers a Bridge as living on this device. Call before Run.
func (d *Device) Attach(b *Bridge) {
	d.bridges = append(d.bridges, b)
	b.device = d
}

// Write serialises data to the physical device. The critical section is
// exactly this call; callers must never hold any other lock across it.
func (d *Device) Write(data []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	_, err := d.port.Write(data)
	return err
}

// Close releases the underlying handle.
func (d *Device) Close() error {
	return d.port.Close()
}

// Run is the single reader/dispatcher task for this device. It blocks
// until a non-timeout read error occurs, then marks every attached
// Bridge terminated and returns; the device is not reopened (§9).
func (d *Device) Run() {
	demarcator := kiss.NewDemarcator()
	buf := make([]byte, 4096)

	for {
		n, err := d.port.Read(buf)
		if err != nil {
			if isTimeout(err) {
				time.Sleep(idleSleep)
				continue
			}
			if d.log != nil {
				d.log.Error("serial read error, dispatcher exiting", "device", d.ID, "err", err)
			}
			for _, b := range d.bridges {
				b.markTerminated()
			}
			return
		}
		if n == 0 {
			time.Sleep(idleSleep)
			continue
		}

		chunk := buf[:n]

		for _, b := range d.bridges {
			if b.RawCopy {
				b.handleRawFromSerial(chunk)
			}
		}

		for _, frame := range demarcator.Feed(chunk) {
			d.dispatchFrame(frame)
		}
	}
}

// dispatchFrame routes one complete, non-raw-copy KISS frame read from
// this device to the Bridge(s) actually declared on its channel. Each
// Bridge is attached to one or two devices (two only for serial-to-serial
// Bridges); which declared channel applies depends on which of those
// devices this frame arrived on, so the comparison and the direction
// passed to handleSerialToSerial both depend on "d".
func (d *Device) dispatchFrame(frame []byte) {
	ch, _ := kiss.PortAndCommand(frame)
	for _, b := range d.bridges {
		if b.RawCopy {
			continue
		}
		switch {
		case b.PeerDevice == d:
			if int(ch) == b.PeerChannel {
				b.handleSerialToSerial(frame, b.PeerChannel, b.Channel, b.device)
			}
		case int(ch) == b.Channel:
			if b.PeerDevice != nil {
				b.handleSerialToSerial(frame, b.Channel, b.PeerChannel, b.PeerDevice)
			} else {
				b.handleFrameFromSerial(frame)
			}
		}
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	if ne, ok := err.(*net.OpError); ok {
		return ne.Timeout()
	}
	return os.IsTimeout(err)
}
