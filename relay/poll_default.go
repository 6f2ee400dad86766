//go:build !unix

package relay

import (
	"fmt"
	"runtime"
	"time"
)

func Supported() error {
	return fmt.Errorf("%w: readiness polling is not available on %s", ErrUnsupported, runtime.GOOS)
}

func pollReadable(fds []uintptr, timeout time.Duration) ([]bool, error) {
	return nil, Supported()
}
