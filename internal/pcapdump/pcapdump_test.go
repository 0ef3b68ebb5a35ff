package pcapdump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenWriteClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")

	sink, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, sink.WritePacket([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, sink.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
