package relay

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/caldog20/tapserver/pkg/frame"
)

// Client is one connected TCP peer. Reads happen only on the writer loop;
// writes may come from both loops and are serialized by wmu so frames never
// interleave on the wire.
type Client struct {
	ID    string
	conn  net.Conn
	fd    uintptr
	raddr net.Addr

	timeout time.Duration

	// guards deadline updates against interrupt
	dmu         sync.Mutex
	interrupted bool

	wmu  sync.Mutex
	wbuf []byte

	closeOnce sync.Once
	closeErr  error
}

func newClient(conn net.Conn, timeout time.Duration) (*Client, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, errors.New("connection does not expose a file descriptor")
	}

	fd, err := rawFD(sc)
	if err != nil {
		return nil, err
	}

	return &Client{
		ID:      uuid.NewString(),
		conn:    conn,
		fd:      fd,
		raddr:   conn.RemoteAddr(),
		timeout: timeout,
		wbuf:    make([]byte, 0, frame.HeaderLen+frame.MaxSize),
	}, nil
}

func rawFD(sc syscall.Conn) (uintptr, error) {
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd uintptr
	err = rc.Control(func(f uintptr) {
		fd = f
	})
	return fd, err
}

func (c *Client) String() string {
	if c == nil {
		return "<nil>"
	}
	id := c.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s@%v", id, c.raddr)
}

// WriteFrame writes payload as a single length-prefixed message.
func (c *Client) WriteFrame(payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	var err error
	c.wbuf, err = frame.Encode(c.wbuf[:0], payload)
	if err != nil {
		return err
	}

	c.armDeadline(c.conn.SetWriteDeadline)

	_, err = c.conn.Write(c.wbuf)
	return err
}

// ReadFrame decodes one message into buf. The returned slice aliases buf.
func (c *Client) ReadFrame(buf []byte) ([]byte, error) {
	c.armDeadline(c.conn.SetReadDeadline)

	return frame.Read(c.conn, buf)
}

func (c *Client) armDeadline(set func(time.Time) error) {
	c.dmu.Lock()
	defer c.dmu.Unlock()

	// An interrupted client keeps its deadline in the past
	if c.interrupted || c.timeout <= 0 {
		return
	}
	set(time.Now().Add(c.timeout))
}

// interrupt fails any blocked or later read and write on the connection
// without closing it.
func (c *Client) interrupt() {
	c.dmu.Lock()
	defer c.dmu.Unlock()

	c.interrupted = true
	if c.conn != nil {
		c.conn.SetDeadline(time.Now())
	}
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.closeErr = c.conn.Close()
		}
	})
	return c.closeErr
}
