package tcpio

import (
	"net"

	"github.com/n7ekb/axkissbridge/internal/kiss"
)

// ReadTask runs the per-connection read loop shared by the TCP server and
// TCP client endpoints: read bytes, feed the demarcator, hand each
// complete frame to onFrame. It returns when the connection errors or
// reaches EOF, after emptying the slot.
func ReadTask(conn net.Conn, slot int, slots *Slots, onFrame func(slot int, frame []byte)) {
	d := kiss.NewDemarcator()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, frame := range d.Feed(buf[:n]) {
				onFrame(slot, frame)
			}
		}
		if err != nil {
			slots.Empty(slot, err)
			return
		}
	}
}
