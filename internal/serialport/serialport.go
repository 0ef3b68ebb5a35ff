// Package serialport adapts github.com/pkg/term into the narrow
// byte-level read/write/close interface the rest of this bridge depends
// on, following the same open/write/get1/close shape as the teacher
// tool's serial_port.go. pkg/term's Term has no read-deadline of its own
// (the teacher's serial_port_get1 simply blocks on it forever), so a
// timed-out Read is synthesised here with a background pump goroutine
// instead, since the dispatcher needs to distinguish "nothing arrived
// yet" from a real I/O failure.
package serialport

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/term"
)

// Parity mirrors the config's parity setting.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// Params are the physical parameters a primary Bridge may set when it
// opens the device. KISS mode forces 8N1 regardless of the configured
// StopBits/Parity/DataBits (see ForceKISSDefaults).
type Params struct {
	Baud     int
	StopBits int
	Parity   Parity
	DataBits int
}

// ForceKISSDefaults returns p with stop bits, parity and data bits pinned
// to 8N1, as required whenever any Bridge on the device is not in
// raw-copy mode.
func ForceKISSDefaults(p Params) Params {
	p.StopBits = 1
	p.Parity = ParityNone
	p.DataBits = 8
	return p
}

// readChunk is one completed background Read: either n bytes or err.
type readChunk struct {
	data []byte
	err  error
}

// Port is an open physical serial device. Reads are pumped through a
// background goroutine so Read can return a timeout error instead of
// blocking forever, which pkg/term's Term does not support natively.
type Port struct {
	t           *term.Term
	readTimeout time.Duration
	chunks      chan readChunk
	closed      chan struct{}
	closeOnce   sync.Once
}

// Open opens device in pkg/term's raw mode with the given read timeout
// and sets its speed from p.Baud. A baud of 0 leaves the port's current
// speed alone, matching the teacher's convention. p's StopBits, Parity
// and DataBits are not applied to the device.
func Open(device string, p Params, readTimeout time.Duration) (*Port, error) {
	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", device, err)
	}

	switch p.Baud {
	case 0:
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := t.SetSpeed(p.Baud); err != nil {
			t.Close()
			return nil, fmt.Errorf("serialport: set speed %d on %s: %w", p.Baud, device, err)
		}
	default:
		if err := t.SetSpeed(4800); err != nil {
			t.Close()
			return nil, fmt.Errorf("serialport: set fallback speed on %s: %w", device, err)
		}
	}

	port := &Port{
		t:           t,
		readTimeout: readTimeout,
		chunks:      make(chan readChunk),
		closed:      make(chan struct{}),
	}
	go port.pump()
	return port, nil
}

// pump runs the blocking t.Read loop on its own goroutine so Read can
// apply a timeout on top of it.
func (p *Port) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := p.t.Read(buf)
		chunk := readChunk{err: err}
		if n > 0 {
			chunk.data = append([]byte(nil), buf[:n]...)
		}
		select {
		case p.chunks <- chunk:
		case <-p.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

// timeoutError satisfies the dispatcher's Timeout() bool check so a
// Read that found nothing within readTimeout is distinguishable from a
// real I/O failure, per §4.9's failure semantics.
type timeoutError struct{}

func (timeoutError) Error() string { return "serialport: read timeout" }
func (timeoutError) Timeout() bool { return true }

// Read fills buf with the next background-pumped chunk, or returns
// timeoutError if nothing arrived within the configured read timeout.
func (p *Port) Read(buf []byte) (int, error) {
	select {
	case chunk, ok := <-p.chunks:
		if !ok {
			return 0, fmt.Errorf("serialport: read on closed port")
		}
		if chunk.err != nil {
			return 0, chunk.err
		}
		return copy(buf, chunk.data), nil
	case <-time.After(p.readTimeout):
		return 0, timeoutError{}
	}
}

// Write writes data in full or returns an error.
func (p *Port) Write(data []byte) (int, error) {
	n, err := p.t.Write(data)
	if err != nil {
		return n, fmt.Errorf("serialport: write: %w", err)
	}
	if n != len(data) {
		return n, fmt.Errorf("serialport: short write: wrote %d of %d bytes", n, len(data))
	}
	return n, nil
}

// Close releases the underlying handle and stops the background pump.
func (p *Port) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return p.t.Close()
}
