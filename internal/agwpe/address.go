package agwpe

import "strings"

// EncodeAddress packs a callsign and SSID into the 7-byte AX.25 address
// format: each of the (up to 6) callsign characters left-shifted one bit,
// space-padded, followed by a byte carrying the SSID in bits 1-4 and the
// address-extension flag in bit 0.
func EncodeAddress(callsign string, ssid int, last bool) [7]byte {
	var out [7]byte
	cs := strings.ToUpper(callsign)
	for i := 0; i < 6; i++ {
		c := byte(' ')
		if i < len(cs) {
			c = cs[i]
		}
		out[i] = c << 1
	}
	ssidByte := byte(ssid&0x0F) << 1
	ssidByte |= 0x60 // reserved bits conventionally set per AX.25
	if last {
		ssidByte |= 0x01
	}
	out[6] = ssidByte
	return out
}

// DecodeAddress extracts a "CALL-SSID" string (or bare "CALL" when SSID is
// zero) from a 7-byte AX.25 address field.
func DecodeAddress(addr []byte) string {
	if len(addr) < 7 {
		return ""
	}
	var cs [6]byte
	for i := 0; i < 6; i++ {
		cs[i] = addr[i] >> 1
	}
	call := strings.TrimRight(string(cs[:]), " ")
	ssid := (addr[6] >> 1) & 0x0F
	if ssid == 0 {
		return call
	}
	return call + "-" + itoa(int(ssid))
}

// LastAddress reports whether addr's extension bit marks it as the final
// address in an AX.25 address list.
func LastAddress(addr []byte) bool {
	if len(addr) < 7 {
		return false
	}
	return addr[6]&0x01 == 1
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
