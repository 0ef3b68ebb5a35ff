// Package tcpserver implements the TCP server endpoint (C8): an accept
// loop over a fixed-capacity client slot array, broadcasting
// serial-origin frames to every connected client and demultiplexing
// client-origin frames back toward the physical device.
package tcpserver

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/n7ekb/axkissbridge/internal/logging"
	"github.com/n7ekb/axkissbridge/internal/tcpio"
)

// Server accepts clients on a fixed address and fans frames out to them.
type Server struct {
	ln      net.Listener
	Slots   *tcpio.Slots
	onFrame func(slot int, frame []byte)
	log     *logging.Logger

	// Raw, when set, bypasses the KISS demarcator entirely and hands
	// onFrame raw bytes exactly as received, per raw-copy mode (§4.11).
	Raw bool
}

// Listen binds addr and returns a Server with the given client capacity.
// onFrame is invoked for every complete frame a client sends (or, in raw
// mode, for every raw read).
func Listen(addr string, capacity int, onFrame func(slot int, frame []byte), log *logging.Logger) (*Server, error) {
	lc := net.ListenConfig{Control: setReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:      ln,
		onFrame: onFrame,
		log:     log,
	}
	s.Slots = tcpio.New(capacity, func(event string, slot int, err error) {
		if log != nil {
			log.Info(event, "slot", slot, "err", err)
		}
	})
	return s, nil
}

// Serve runs the accept loop until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.log != nil {
				s.log.Error("accept error", "err", err)
			}
			time.Sleep(time.Second)
			if isClosed(err) {
				return
			}
			continue
		}

		slot, ok := s.Slots.TryInstall(conn)
		if !ok {
			if s.log != nil {
				s.log.Warn("too many clients, refusing connection", "remote", conn.RemoteAddr())
			}
			conn.Close()
			continue
		}
		if s.Raw {
			go tcpio.RawReadTask(slot, s.Slots, s.onFrame)
		} else {
			go tcpio.ReadTask(conn, slot, s.Slots, s.onFrame)
		}
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

// setReuseAddr lets the listener rebind immediately after a restart
// instead of waiting out TIME_WAIT, the same SO_REUSEADDR handling the
// teacher applies to its own KISS TCP listener.
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
