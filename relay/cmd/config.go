package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caldog20/tapserver/pkg/frame"
	"github.com/caldog20/tapserver/relay"
	"github.com/caldog20/tapserver/tap"
)

type Options struct {
	Port          uint16        `yaml:"port"`
	MaxClients    int           `yaml:"max_clients"`
	Wait          time.Duration `yaml:"wait"`
	MaxFrame      int           `yaml:"max_frame"`
	ClientTimeout time.Duration `yaml:"client_timeout"`
	Device        string        `yaml:"device"`
	Hub           bool          `yaml:"hub"`
	LinkUp        bool          `yaml:"link_up"`
	Metrics       string        `yaml:"metrics"`
	Debug         bool          `yaml:"debug"`
	Color         bool          `yaml:"color"`
}

func DefaultOptions() Options {
	return Options{
		Port:          relay.DefaultPort,
		MaxClients:    relay.DefaultMaxClients,
		Wait:          relay.DefaultWaitTimeout,
		MaxFrame:      frame.MaxSize,
		ClientTimeout: relay.DefaultClientTimeout,
	}
}

// LoadOptions reads a YAML file on top of the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	f, err := os.Open(path)
	if err != nil {
		return opts, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&opts); err != nil {
		return opts, fmt.Errorf("error decoding config file %s: %w", path, err)
	}

	return opts, nil
}

// merge copies values from file for every flag the user did not set.
func (o *Options) merge(cmd *cobra.Command, file Options) {
	changed := cmd.Flags().Changed

	if !changed("port") {
		o.Port = file.Port
	}
	if !changed("max-clients") {
		o.MaxClients = file.MaxClients
	}
	if !changed("wait") {
		o.Wait = file.Wait
	}
	if !changed("max-frame") {
		o.MaxFrame = file.MaxFrame
	}
	if !changed("client-timeout") {
		o.ClientTimeout = file.ClientTimeout
	}
	if !changed("device") {
		o.Device = file.Device
	}
	if !changed("hub") {
		o.Hub = file.Hub
	}
	if !changed("link-up") {
		o.LinkUp = file.LinkUp
	}
	if !changed("metrics") {
		o.Metrics = file.Metrics
	}
	if !changed("debug") {
		o.Debug = file.Debug
	}
	if !changed("color") {
		o.Color = file.Color
	}
}

func (o Options) validate() error {
	if o.Hub && (o.Device != "" || o.LinkUp) {
		return errors.New("hub mode does not use a device, drop --device and --link-up")
	}
	return nil
}

func (o Options) RelayConfig() relay.Config {
	return relay.Config{
		Port:          o.Port,
		MaxClients:    o.MaxClients,
		WaitTimeout:   o.Wait,
		MaxFrameSize:  o.MaxFrame,
		ClientTimeout: o.ClientTimeout,
	}
}

func (o Options) TapConfig() tap.Config {
	return tap.Config{Name: o.Device, LinkUp: o.LinkUp}
}
