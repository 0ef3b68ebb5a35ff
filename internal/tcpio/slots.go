// Package tcpio implements the fixed-capacity slot array shared by the
// TCP server endpoint (C8) and the TCP client endpoint (C9): a bounded
// set of optional live connections, each with its own outbound queue so
// that one slow client cannot stall a broadcast to the others. This
// resolves the "writer serialisation across KISSCOPY and broadcast" open
// question by giving every slot a bounded, drop-oldest queue drained by a
// dedicated writer goroutine.
package tcpio

import (
	"net"
	"sync"
)

// OutboundQueueDepth bounds each slot's per-connection outbound queue.
const OutboundQueueDepth = 64

// Slots is a fixed-capacity array of nullable live connections.
type Slots struct {
	mu    sync.Mutex
	conns []net.Conn
	out   []chan []byte
	onLog func(event string, slot int, err error)
}

// New returns a Slots with the given capacity.
func New(capacity int, onLog func(event string, slot int, err error)) *Slots {
	return &Slots{
		conns: make([]net.Conn, capacity),
		out:   make([]chan []byte, capacity),
		onLog: onLog,
	}
}

// Capacity returns the fixed slot count.
func (s *Slots) Capacity() int {
	return len(s.conns)
}

// Count returns the number of currently occupied slots.
func (s *Slots) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.conns {
		if c != nil {
			n++
		}
	}
	return n
}

// TryInstall finds the first empty slot, installs conn into it, and
// starts its writer goroutine. It returns (-1, false) when every slot is
// occupied.
func (s *Slots) TryInstall(conn net.Conn) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.conns {
		if c == nil {
			s.conns[i] = conn
			s.out[i] = make(chan []byte, OutboundQueueDepth)
			go s.writer(i, conn, s.out[i])
			return i, true
		}
	}
	return -1, false
}

func (s *Slots) writer(slot int, conn net.Conn, out <-chan []byte) {
	for frame := range out {
		if _, err := conn.Write(frame); err != nil {
			s.Empty(slot, err)
			return
		}
	}
}

// Empty closes and clears a slot if it still holds conn's generation; a
// slot already emptied or reused is left alone. Safe to call from a
// reader task, a writer goroutine, or a broadcaster.
func (s *Slots) Empty(slot int, cause error) {
	s.mu.Lock()
	conn := s.conns[slot]
	out := s.out[slot]
	s.conns[slot] = nil
	s.out[slot] = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close()
	if out != nil {
		close(out)
	}
	if s.onLog != nil {
		s.onLog("slot_closed", slot, cause)
	}
}

// Enqueue pushes frame onto slot's outbound queue, dropping the oldest
// queued frame on overflow rather than blocking the broadcaster.
func (s *Slots) Enqueue(slot int, frame []byte) {
	s.mu.Lock()
	out := s.out[slot]
	s.mu.Unlock()
	if out == nil {
		return
	}
	for {
		select {
		case out <- frame:
			return
		default:
		}
		select {
		case <-out:
			if s.onLog != nil {
				s.onLog("outbound_queue_overflow", slot, nil)
			}
		default:
			return
		}
	}
}

// Broadcast enqueues frame to every occupied slot other than except
// (pass -1 to exclude none). A write failure on one slot empties only
// that slot; it does not stop delivery to the others.
func (s *Slots) Broadcast(frame []byte, except int) {
	s.mu.Lock()
	occupied := make([]int, 0, len(s.conns))
	for i, c := range s.conns {
		if c != nil && i != except {
			occupied = append(occupied, i)
		}
	}
	s.mu.Unlock()

	for _, i := range occupied {
		s.Enqueue(i, frame)
	}
}

// Conn returns the connection installed in a slot, or nil.
func (s *Slots) Conn(slot int) net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[slot]
}
