// Package portxlate rewrites and filters KISS frames by channel number,
// implementing both the source->dest port translation used for
// serial-to-serial bridges and the channel-remap mode used to present a
// physical TNC's non-zero port as "channel 0" to a host application.
package portxlate

import "github.com/n7ekb/axkissbridge/internal/kiss"

// PassAll is the kiss_chan sentinel meaning "forward every channel
// unmodified".
const PassAll = -1

// Translate returns the frame rewritten to destCh when frame's channel
// equals sourceCh and sourceCh != destCh. It returns (nil, false) when the
// frame is on an unrelated channel (drop) or when sourceCh == destCh
// (pass through unmodified is the caller's job, not this function's).
func Translate(frame []byte, sourceCh, destCh byte) ([]byte, bool) {
	ch, _ := kiss.PortAndCommand(frame)
	if ch != sourceCh {
		return nil, false
	}
	if sourceCh == destCh {
		return nil, false
	}
	return kiss.SetPort(frame, destCh), true
}

// Remap applies a Bridge's kiss_chan setting to a frame moving from
// serial toward TCP/AGW: PassAll means unmodified passthrough, any other
// value in [0,15] rewrites the matching channel to 0 and drops everything
// else.
func Remap(frame []byte, kissChan int) ([]byte, bool) {
	if kissChan == PassAll {
		return frame, true
	}
	ch, _ := kiss.PortAndCommand(frame)
	if int(ch) != kissChan {
		return nil, false
	}
	return kiss.SetPort(frame, 0), true
}

// Unremap reverses Remap for a frame moving from TCP/AGW back toward
// serial: PassAll leaves the frame unmodified, otherwise channel 0 is
// rewritten back to the Bridge's configured physical channel.
func Unremap(frame []byte, kissChan int) []byte {
	if kissChan == PassAll {
		return frame
	}
	return kiss.SetPort(frame, byte(kissChan))
}
