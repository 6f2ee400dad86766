//go:build !linux && !windows

package tap

import (
	"fmt"
	"runtime"

	"github.com/songgao/water"
)

func platformConfig(name string) water.Config {
	return water.Config{DeviceType: water.TAP}
}

func linkUp(name string) error {
	return fmt.Errorf("link up is not supported on %s", runtime.GOOS)
}
