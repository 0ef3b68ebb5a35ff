package tcpio

// RawReadTask runs a per-connection read loop for raw-copy Bridges: bytes
// are handed to onRaw exactly as received, bypassing the KISS demarcator
// entirely, per the raw-copy mode contract.
func RawReadTask(slot int, slots *Slots, onRaw func(slot int, data []byte)) {
	conn := slots.Conn(slot)
	if conn == nil {
		return
	}
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			onRaw(slot, cp)
		}
		if err != nil {
			slots.Empty(slot, err)
			return
		}
	}
}
