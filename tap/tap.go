package tap

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/songgao/water"
)

// Room for a jumbo-less ethernet frame with plenty of slack
const BufferSize = 4096

var ErrClosed = errors.New("tap device closed")

type Config struct {
	// Interface name, empty lets the OS pick one
	Name string
	// Bring the link up after creation
	LinkUp bool
}

// Device is a TAP interface with a wait-then-read API. A pump goroutine
// reads frames off the interface so WaitReadable can honour a timeout.
// WaitReadable and Read must be called from a single goroutine.
type Device struct {
	rwc  io.ReadWriteCloser
	name string

	frames  chan []byte
	pending []byte
	err     error
	failed  bool

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var buffers = sync.Pool{New: func() any {
	b := make([]byte, BufferSize)
	return &b
}}

func getBuffer() []byte {
	return *(buffers.Get().(*[]byte))
}

func putBuffer(b []byte) {
	b = b[:cap(b)]
	buffers.Put(&b)
}

func New(cfg Config) (*Device, error) {
	ifce, err := water.New(platformConfig(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("error creating tap interface: %w", err)
	}

	if cfg.LinkUp {
		if err := linkUp(ifce.Name()); err != nil {
			ifce.Close()
			return nil, err
		}
	}

	return newDevice(ifce, ifce.Name()), nil
}

func newDevice(rwc io.ReadWriteCloser, name string) *Device {
	d := &Device{
		rwc:    rwc,
		name:   name,
		frames: make(chan []byte, 1),
		closed: make(chan struct{}),
	}
	go d.pump()
	return d
}

func (d *Device) pump() {
	defer close(d.frames)

	for {
		b := getBuffer()
		n, err := d.rwc.Read(b)
		if err != nil {
			putBuffer(b)
			d.err = err
			return
		}

		select {
		case d.frames <- b[:n]:
		case <-d.closed:
			putBuffer(b)
			d.err = ErrClosed
			return
		}
	}
}

// WaitReadable blocks up to timeout for a frame. Once the interface has
// failed and the failure was returned by Read, it only waits out the
// timeout and reports false.
func (d *Device) WaitReadable(timeout time.Duration) bool {
	if d.pending != nil {
		return true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	if d.failed {
		select {
		case <-t.C:
		case <-d.closed:
		}
		return false
	}

	select {
	case b, ok := <-d.frames:
		if ok {
			d.pending = b
		}
		// A closed channel is readable too, Read reports the error
		return true
	case <-t.C:
		return false
	}
}

// Read copies the next frame into b, blocking if none is pending. A frame
// larger than b is dropped and reported with io.ErrShortBuffer.
func (d *Device) Read(b []byte) (int, error) {
	if d.pending == nil {
		if d.failed {
			return 0, d.failure()
		}
		p, ok := <-d.frames
		if !ok {
			d.failed = true
			return 0, d.failure()
		}
		d.pending = p
	}

	p := d.pending
	d.pending = nil
	defer putBuffer(p)

	// Never hand out a truncated frame, drop it instead
	if len(p) > len(b) {
		return 0, fmt.Errorf("%w: %d byte frame, buffer holds %d", io.ErrShortBuffer, len(p), len(b))
	}
	return copy(b, p), nil
}

func (d *Device) failure() error {
	if d.err == nil {
		return io.EOF
	}
	return d.err
}

func (d *Device) Write(b []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, ErrClosed
	default:
	}
	return d.rwc.Write(b)
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		d.closeErr = d.rwc.Close()
	})
	return d.closeErr
}
