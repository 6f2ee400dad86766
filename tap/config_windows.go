//go:build windows

package tap

import (
	"fmt"

	"github.com/songgao/water"
)

func platformConfig(name string) water.Config {
	cfg := water.Config{DeviceType: water.TAP}
	cfg.ComponentID = "tap0901"
	cfg.InterfaceName = name
	return cfg
}

func linkUp(name string) error {
	return fmt.Errorf("link up is not supported on windows, enable %q from the adapter settings", name)
}
