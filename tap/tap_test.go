package tap

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*Device, net.Conn) {
	devSide, hostSide := net.Pipe()
	d := newDevice(devSide, "tap-test")
	t.Cleanup(func() {
		d.Close()
		hostSide.Close()
	})
	return d, hostSide
}

func TestWaitReadableTimeout(t *testing.T) {
	d, _ := newTestDevice(t)

	start := time.Now()
	assert.False(t, d.WaitReadable(time.Millisecond*20))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond*20)
}

func TestWaitThenRead(t *testing.T) {
	d, host := newTestDevice(t)

	go host.Write([]byte("frame-one"))

	require.True(t, d.WaitReadable(time.Second))
	// A pending frame keeps the device readable
	assert.True(t, d.WaitReadable(time.Millisecond))

	buf := make([]byte, BufferSize)
	n, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "frame-one", string(buf[:n]))
}

func TestReadBlocksForFrame(t *testing.T) {
	d, host := newTestDevice(t)

	go host.Write([]byte("frame-two"))

	buf := make([]byte, BufferSize)
	n, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "frame-two", string(buf[:n]))
}

func TestReadAfterHostClose(t *testing.T) {
	d, host := newTestDevice(t)
	host.Close()

	require.True(t, d.WaitReadable(time.Second))

	buf := make([]byte, BufferSize)
	n, err := d.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	// Failure is reported once, afterwards the device just stays quiet
	assert.False(t, d.WaitReadable(time.Millisecond*10))
	_, err = d.Read(buf)
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	d, host := newTestDevice(t)

	got := make(chan []byte, 1)
	go func() {
		b := make([]byte, BufferSize)
		n, _ := host.Read(b)
		got <- b[:n]
	}()

	n, err := d.Write([]byte{0xde, 0xad})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0xde, 0xad}, <-got)
}

func TestWriteAfterClose(t *testing.T) {
	d, _ := newTestDevice(t)
	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())

	_, err := d.Write([]byte{0x01})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "tap-test", d.Name())
}

func TestReadDropsFrameLargerThanBuffer(t *testing.T) {
	d, host := newTestDevice(t)

	go func() {
		host.Write([]byte("0123456789"))
		host.Write([]byte("ok"))
	}()

	small := make([]byte, 4)
	n, err := d.Read(small)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	// The device keeps working after the drop
	n, err = d.Read(small)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(small[:n]))
}
