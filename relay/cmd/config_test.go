package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldog20/tapserver/relay"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "tapserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOptions(t *testing.T) {
	path := writeConfig(t, `
port: 4321
max_clients: 8
wait: 250ms
client_timeout: 2s
device: tap7
link_up: true
metrics: ":9100"
`)

	o, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(4321), o.Port)
	assert.Equal(t, 8, o.MaxClients)
	assert.Equal(t, time.Millisecond*250, o.Wait)
	assert.Equal(t, time.Second*2, o.ClientTimeout)
	assert.Equal(t, "tap7", o.Device)
	assert.True(t, o.LinkUp)
	assert.Equal(t, ":9100", o.Metrics)
	// Unset keys keep their defaults
	assert.Equal(t, DefaultOptions().MaxFrame, o.MaxFrame)
}

func TestLoadOptionsErrors(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadOptions(writeConfig(t, "port: [not a number"))
	assert.Error(t, err)
}

func TestMergeFlagsOverrideFile(t *testing.T) {
	o := DefaultOptions()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Uint16Var(&o.Port, "port", o.Port, "")
	cmd.Flags().BoolVar(&o.Hub, "hub", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9000"}))

	file := DefaultOptions()
	file.Port = 4321
	file.Hub = true
	file.MaxClients = 2

	o.merge(cmd, file)
	assert.Equal(t, uint16(9000), o.Port)
	assert.True(t, o.Hub)
	assert.Equal(t, 2, o.MaxClients)
}

func TestOptionsValidate(t *testing.T) {
	o := DefaultOptions()
	assert.NoError(t, o.validate())

	o.Hub = true
	o.Device = "tap0"
	assert.Error(t, o.validate())
}

func TestRelayConfig(t *testing.T) {
	o := DefaultOptions()
	cfg := o.RelayConfig()
	assert.Equal(t, relay.DefaultConfig(), cfg)

	o.Device = "tap3"
	assert.Equal(t, "tap3", o.TapConfig().Name)
}
