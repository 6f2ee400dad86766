//go:build !unix

package relay

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServerUnsupportedPlatform(t *testing.T) {
	_, err := NewServer(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorContains(t, err, runtime.GOOS)
}
