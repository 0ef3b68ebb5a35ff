// Package agwserver implements the AGWPE TCP listener: a single
// process-wide accept loop over AGWPE client connections, with each
// connected client tracked through its own ClientState (registered
// callsign, monitor flag). Multiple Bridges share one Server, each
// registering under its own AGW port number so that a single AGWPE
// connection can address several physical channels.
package agwserver

import (
	"context"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/n7ekb/axkissbridge/internal/agwpe"
	"github.com/n7ekb/axkissbridge/internal/logging"
	"github.com/n7ekb/axkissbridge/internal/tcpio"
)

// TransmitFunc is invoked when a client sends a 'K' raw-data command
// addressed to the AGW port this handler was registered under.
type TransmitFunc func(payload []byte)

// Server is the shared AGWPE TCP listener every AGW-enabled Bridge
// registers against.
type Server struct {
	ln    net.Listener
	Slots *tcpio.Slots
	log   *logging.Logger

	mu       sync.Mutex
	handlers map[uint32]TransmitFunc
	states   map[int]*agwpe.ClientState
}

// Listen binds addr for AGWPE clients, capped at capacity concurrent
// connections. Bridges attach to the returned Server with Register.
func Listen(addr string, capacity int, log *logging.Logger) (*Server, error) {
	lc := net.ListenConfig{Control: setReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:       ln,
		log:      log,
		handlers: make(map[uint32]TransmitFunc),
		states:   make(map[int]*agwpe.ClientState),
	}
	s.Slots = tcpio.New(capacity, func(event string, slot int, err error) {
		s.mu.Lock()
		delete(s.states, slot)
		s.mu.Unlock()
		if log != nil {
			log.Info(event, "slot", slot, "err", err)
		}
	})
	return s, nil
}

// Register associates an AGW port number with the Bridge that serves it.
// A 'K' command naming this port is handed to tx; EmitFromSerial for
// this port delivers to every connected client.
func (s *Server) Register(port uint32, tx TransmitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[port] = tx
}

// Serve runs the accept loop until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.log != nil {
				s.log.Error("agw accept error", "err", err)
			}
			time.Sleep(time.Second)
			if isClosed(err) {
				return
			}
			continue
		}
		slot, ok := s.Slots.TryInstall(conn)
		if !ok {
			conn.Close()
			continue
		}
		s.mu.Lock()
		s.states[slot] = &agwpe.ClientState{}
		s.mu.Unlock()
		go s.readLoop(conn, slot)
	}
}

func (s *Server) readLoop(conn net.Conn, slot int) {
	var pending []byte
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			frames, consumed := agwpe.ParseStream(pending)
			pending = pending[consumed:]
			for _, f := range frames {
				s.handle(slot, f)
			}
		}
		if err != nil {
			s.Slots.Empty(slot, err)
			return
		}
	}
}

func (s *Server) handle(slot int, in agwpe.Frame) {
	s.mu.Lock()
	state := s.states[slot]
	s.mu.Unlock()
	if state == nil {
		return
	}

	responses, toTransmit, port := agwpe.HandleCommand(state, in)
	for _, r := range responses {
		s.Slots.Enqueue(slot, r.Pack())
	}
	if toTransmit != nil {
		s.mu.Lock()
		tx := s.handlers[uint32(port)]
		s.mu.Unlock()
		if tx != nil {
			tx(toTransmit)
		} else if s.log != nil {
			s.log.Warn("agw transmit to unregistered port, dropping", "port", port)
		}
	}
}

// EmitFromSerial delivers an AGWPE frame for a KISS data frame received
// from serial, on the given AGW port, to every connected client,
// honoring each client's monitor flag.
func (s *Server) EmitFromSerial(port uint32, payload []byte) {
	s.mu.Lock()
	states := make(map[int]*agwpe.ClientState, len(s.states))
	for k, v := range s.states {
		states[k] = v
	}
	s.mu.Unlock()

	for slot, state := range states {
		f := agwpe.EmitFromSerial(byte(port), payload, state.Monitor)
		f.Header.Port = port
		s.Slots.Enqueue(slot, f.Pack())
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

func isClosed(err error) bool {
	ne, ok := err.(*net.OpError)
	return ok && ne.Err.Error() == "use of closed network connection"
}

// setReuseAddr mirrors tcpserver's SO_REUSEADDR handling for this
// listener.
func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
