// Package tcpclient implements the TCP client endpoint (C9): an
// outbound connection occupying slot 0 of a one-slot array, retried with
// exponential backoff on any error or EOF.
package tcpclient

import (
	"net"
	"time"

	"github.com/n7ekb/axkissbridge/internal/logging"
	"github.com/n7ekb/axkissbridge/internal/tcpio"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// Client maintains a single reconnecting outbound connection.
type Client struct {
	Addr    string
	Slots   *tcpio.Slots
	onFrame func(slot int, frame []byte)
	log     *logging.Logger
	stop    chan struct{}

	// Raw, when set, bypasses the KISS demarcator per raw-copy mode.
	Raw bool
}

// New returns a Client dialing addr. onFrame is invoked for every
// complete frame the server sends.
func New(addr string, onFrame func(slot int, frame []byte), log *logging.Logger) *Client {
	c := &Client{
		Addr:    addr,
		onFrame: onFrame,
		log:     log,
		stop:    make(chan struct{}),
	}
	c.Slots = tcpio.New(1, func(event string, slot int, err error) {
		if log != nil {
			log.Info(event, "slot", slot, "err", err)
		}
	})
	return c
}

// Run connects and reconnects until Stop is called, blocking the caller.
func (c *Client) Run() {
	backoff := initialBackoff
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		conn, err := net.Dial("tcp", c.Addr)
		if err != nil {
			if c.log != nil {
				c.log.Warn("connect failed, retrying", "addr", c.Addr, "backoff", backoff, "err", err)
			}
			if !c.sleep(backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		if _, ok := c.Slots.TryInstall(conn); !ok {
			conn.Close()
			continue
		}
		backoff = initialBackoff
		if c.Raw {
			tcpio.RawReadTask(0, c.Slots, c.onFrame)
		} else {
			tcpio.ReadTask(conn, 0, c.Slots, c.onFrame)
		}
		if !c.sleep(backoff) {
			return
		}
	}
}

// Stop terminates Run's retry loop and closes the current connection, if
// any.
func (c *Client) Stop() {
	close(c.stop)
	c.Slots.Empty(0, nil)
}

func (c *Client) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.stop:
		return false
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
