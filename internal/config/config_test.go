package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadBasicBridge(t *testing.T) {
	path := writeTemp(t, `
serial_port0001=/dev/ttyUSB0
cross_connect0001=serial:0001:0 <-> tcp:0.0.0.0:8001
`)
	r, err := Load(path)
	require.NoError(t, err)

	require.Contains(t, r.Devices, "0001")
	assert.Equal(t, "/dev/ttyUSB0", r.Devices["0001"].Device)

	require.Len(t, r.Bridges, 1)
	b := r.Bridges[0]
	assert.Equal(t, EndpointSerial, b.A.Kind)
	assert.Equal(t, "0001", b.A.DeviceID)
	assert.Equal(t, 0, b.A.Channel)
	assert.Equal(t, EndpointTCP, b.B.Kind)
	assert.Equal(t, "0.0.0.0", b.B.Address)
	assert.Equal(t, uint16(8001), b.B.Port)
}

func TestLoadRejectsTCPToTCP(t *testing.T) {
	path := writeTemp(t, `
cross_connect0001=tcp:localhost:1 <-> tcp:localhost:2
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTCPToTCP)
}

func TestLoadSynthesizesDefaultBridge(t *testing.T) {
	path := writeTemp(t, `
serial_port0000=/dev/ttyUSB0
`)
	r, err := Load(path)
	require.NoError(t, err)
	require.Len(t, r.Bridges, 1)
	assert.Equal(t, "0000", r.Bridges[0].A.DeviceID)
	assert.Equal(t, EndpointTCP, r.Bridges[0].B.Kind)
	assert.Equal(t, uint16(8001), r.Bridges[0].B.Port)
}

func TestLoadUnknownSerialPortIDFails(t *testing.T) {
	path := writeTemp(t, `
cross_connect0001=serial:9999:0 <-> tcp:localhost:8001
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFlagsAndGlobalSettings(t *testing.T) {
	path := writeTemp(t, `
serial_port0001=/dev/ttyUSB0
cross_connect0001=serial:0001:0 <-> tcp:0.0.0.0:8001
cross_connect0001_phil_flag=true
cross_connect0001_kiss_chan=3
max_tcp_clients=5
log_level=2
logfile=/var/log/bridge.log
`)
	r, err := Load(path)
	require.NoError(t, err)
	assert.True(t, r.Bridges[0].PhilFlag)
	assert.Equal(t, 3, r.Bridges[0].KissChan)
	assert.Equal(t, 5, r.MaxTCPClients)
	assert.Equal(t, 2, r.LogLevel)
	assert.Equal(t, "/var/log/bridge.log", r.Logfile)
}

func TestLoadMultipleCrossConnectsInOrder(t *testing.T) {
	path := writeTemp(t, `
serial_port0000=/dev/ttyUSB0
serial_port0001=/dev/ttyUSB1
cross_connect0000=serial:0000:0 <-> tcp:0.0.0.0:8001
cross_connect0001=serial:0000:1 <-> serial:0001:0
`)
	r, err := Load(path)
	require.NoError(t, err)
	require.Len(t, r.Bridges, 2)
	assert.Equal(t, "0000", r.Bridges[0].ID)
	assert.Equal(t, "0001", r.Bridges[1].ID)
}
