package relay

import (
	"fmt"
	"net"
	"sync"
	"time"

	tec "github.com/jbenet/go-temp-err-catcher"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/caldog20/tapserver/pkg/frame"
)

const (
	DefaultPort          = 1234
	DefaultMaxClients    = 5
	DefaultWaitTimeout   = time.Millisecond * 100
	DefaultClientTimeout = time.Second * 5
)

// Device is the frame source and sink the server bridges clients to.
// Only the reader loop calls WaitReadable and Read, only the writer loop
// calls Write.
type Device interface {
	// WaitReadable blocks up to timeout and reports whether a frame is ready.
	WaitReadable(timeout time.Duration) bool
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
}

type Mode int

const (
	ModeTap Mode = iota
	ModeHub
)

func (m Mode) String() string {
	switch m {
	case ModeTap:
		return "tap"
	case ModeHub:
		return "hub"
	default:
		return "unknown"
	}
}

type Config struct {
	Port       uint16
	MaxClients int
	// Bounds every readiness wait and therefore how long Stop takes
	WaitTimeout time.Duration
	// Largest payload accepted from a client or read from the device
	MaxFrameSize int
	// Read/write deadline for a single client frame, 0 disables
	ClientTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:          DefaultPort,
		MaxClients:    DefaultMaxClients,
		WaitTimeout:   DefaultWaitTimeout,
		MaxFrameSize:  frame.MaxSize,
		ClientTimeout: DefaultClientTimeout,
	}
}

func (c Config) validate() error {
	if c.MaxClients < 1 {
		return fmt.Errorf("%w: max clients must be at least 1, got %d", ErrInvalidConfig, c.MaxClients)
	}
	if c.WaitTimeout < time.Millisecond {
		return fmt.Errorf("%w: wait timeout must be at least 1ms, got %s", ErrInvalidConfig, c.WaitTimeout)
	}
	if c.MaxFrameSize < 1 || c.MaxFrameSize > frame.MaxSize {
		return fmt.Errorf("%w: max frame size must be within 1..%d, got %d", ErrInvalidConfig, frame.MaxSize, c.MaxFrameSize)
	}
	if c.ClientTimeout < 0 {
		return fmt.Errorf("%w: client timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

type Option func(*Server)

func WithLogger(e *log.Entry) Option {
	return func(s *Server) {
		s.log = e
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithFrameSummary sets a describer used for debug logging of every frame.
func WithFrameSummary(fn func([]byte) string) Option {
	return func(s *Server) {
		s.summarize = fn
	}
}

// Server relays frames between a Device and TCP clients. With a nil Device
// it runs in hub mode and relays client frames to every other client.
type Server struct {
	cfg       Config
	dev       Device
	clients   *Registry
	metrics   *Metrics
	log       *log.Entry
	summarize func([]byte) string

	ln         *net.TCPListener
	lnFD       uintptr
	acceptConn func() (*net.TCPConn, error)
	acceptErrs tec.TempErrCatcher

	// run flag, guarded separately from the registry and never held across I/O
	runMu   sync.Mutex
	running bool

	// lifecycle state
	mu      sync.Mutex
	started bool
	closed  bool

	eg       errgroup.Group
	done     chan struct{}
	err      error
	stopOnce sync.Once
	stopErr  error
}

func NewServer(cfg Config, dev Device, opts ...Option) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := Supported(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		dev:     dev,
		clients: NewRegistry(cfg.MaxClients),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = log.WithField("component", "relay")
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}

	return s, nil
}

// Start binds the listener and launches the reader and writer loops.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return ErrAlreadyRunning
	}

	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{Port: int(s.cfg.Port)})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListener, err)
	}

	fd, err := rawFD(ln)
	if err != nil {
		ln.Close()
		return fmt.Errorf("%w: %w", ErrListener, err)
	}

	s.ln = ln
	s.lnFD = fd
	s.acceptConn = ln.AcceptTCP
	s.started = true
	s.setRunning(true)

	s.log.Infof("relay listening on %s in %s mode (max clients %d)", ln.Addr(), s.Mode(), s.cfg.MaxClients)

	s.eg.Go(s.readLoop)
	s.eg.Go(s.writeLoop)

	go func() {
		s.err = s.eg.Wait()
		s.setRunning(false)
		close(s.done)
	}()

	return nil
}

// Stop clears the run flag, interrupts client I/O still in flight, waits for
// both loops to exit and releases the listener and every client. It returns the fatal error that ended the
// loops, if any. Calling Stop more than once returns the same result.
func (s *Server) Stop() error {
	s.mu.Lock()
	started := s.started
	s.closed = true
	s.mu.Unlock()

	if !started {
		return nil
	}

	s.stopOnce.Do(func() {
		s.setRunning(false)
		s.clients.Range(func(_ int, c *Client) bool {
			c.interrupt()
			return true
		})
		<-s.done

		err := s.err
		if cerr := s.ln.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
		for _, c := range s.clients.Clear() {
			err = multierr.Append(err, c.Close())
		}
		s.metrics.clients.Set(0)
		s.stopErr = err

		s.log.Info("relay stopped")
	})

	return s.stopErr
}

// Done is closed once both loops have exited, either through Stop or after
// a fatal error.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the fatal error that ended the loops. It is nil while the
// server runs.
func (s *Server) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Mode() Mode {
	if s.dev == nil {
		return ModeHub
	}
	return ModeTap
}

func (s *Server) Clients() int {
	return s.clients.Len()
}

func (s *Server) Running() bool {
	return s.isRunning()
}

func (s *Server) isRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

func (s *Server) setRunning(running bool) {
	s.runMu.Lock()
	s.running = running
	s.runMu.Unlock()
}

// fatal clears the run flag so the other loop unwinds on its next pass.
func (s *Server) fatal(op string, err error) error {
	s.setRunning(false)
	ferr := &FatalError{Op: op, Err: err}
	s.log.WithError(err).Errorf("%s failed, stopping relay", op)
	return ferr
}

// evict removes c after a per-client failure. Both loops may evict the same
// client; only the first removal is counted. Failures caused by Stop
// interrupting the client are left to Stop.
func (s *Server) evict(c *Client, reason string, op string, err error) {
	if !s.isRunning() {
		return
	}
	if s.clients.Remove(c) {
		s.metrics.evictions.WithLabelValues(reason).Inc()
		s.metrics.clients.Set(float64(s.clients.Len()))
		s.log.Warn((&ClientError{Client: c, Op: op, Err: err}).Error() + ", evicted")
	}
	c.Close()
}

// broadcast writes payload to every registered client except skip.
func (s *Server) broadcast(payload []byte, skip *Client) {
	for _, c := range s.clients.Snapshot() {
		if c == skip {
			continue
		}
		if err := c.WriteFrame(payload); err != nil {
			s.evict(c, evictWrite, "write", err)
			continue
		}
		s.metrics.clientFramesSent.Inc()
	}
}

func (s *Server) logFrame(source string, b []byte) {
	if !s.log.Logger.IsLevelEnabled(log.DebugLevel) {
		return
	}

	entry := s.log.WithField("len", len(b))
	if s.summarize != nil {
		entry = entry.WithField("frame", s.summarize(b))
	}
	entry.Debugf("frame from %s", source)
}
