// Package pcapdump writes AX.25 payloads to a libpcap-format capture
// file via gopacket/pcapgo rather than hand-rolling the binary file and
// record headers.
package pcapdump

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LinkType is the libpcap link-layer type used for every record: DLT_AX25
// (3), the value direwolf-family tools use for raw AX.25 captures. The
// alternative DLT_AX25_KISS encoding named in the wire-format table was
// not adopted; see DESIGN.md.
const LinkType = layers.LinkType(3)

// Sink is a single shared capture file written to by any number of
// Bridges; it serializes writes internally so callers never need their
// own lock.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	writer *pcapgo.Writer
}

// Open creates (or truncates) the capture file at path and writes its
// file header.
func Open(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("pcapdump: create %s: %w", path, err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, LinkType); err != nil {
		f.Close()
		return nil, fmt.Errorf("pcapdump: write file header: %w", err)
	}
	return &Sink{file: f, writer: w}, nil
}

// WritePacket appends one AX.25 payload (KISS delimiters already
// stripped) as a capture record, stamped with the current time.
func (s *Sink) WritePacket(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(payload),
		Length:        len(payload),
	}
	if err := s.writer.WritePacket(ci, payload); err != nil {
		return fmt.Errorf("pcapdump: write packet: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
