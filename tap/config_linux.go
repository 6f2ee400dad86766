//go:build linux

package tap

import (
	"fmt"
	"os/exec"

	"github.com/songgao/water"
)

func platformConfig(name string) water.Config {
	cfg := water.Config{DeviceType: water.TAP}
	cfg.Name = name
	return cfg
}

func linkUp(name string) error {
	if err := exec.Command("/sbin/ip", "link", "set", "dev", name, "up").Run(); err != nil {
		return fmt.Errorf("ip link error: %w", err)
	}
	return nil
}
