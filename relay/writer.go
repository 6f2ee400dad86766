package relay

import (
	"errors"
	"fmt"
	"io"

	"github.com/caldog20/tapserver/pkg/frame"
)

// writeLoop multiplexes the listener and every client socket. Client frames
// go to the device in tap mode, or to all other clients in hub mode. The
// listener is left out of the wait set while the registry is full, so extra
// connections queue in the kernel backlog until a slot frees up.
func (s *Server) writeLoop() error {
	s.log.Info("starting writer loop")
	defer s.log.Info("stopping writer loop")

	buf := make([]byte, s.cfg.MaxFrameSize)

	for s.isRunning() {
		clients := s.clients.Snapshot()
		acceptable := s.clients.HasRoom()

		fds := make([]uintptr, 0, len(clients)+1)
		for _, c := range clients {
			fds = append(fds, c.fd)
		}
		if acceptable {
			fds = append(fds, s.lnFD)
		}

		ready, err := pollReadable(fds, s.cfg.WaitTimeout)
		if err != nil {
			return s.fatal("poll", err)
		}

		for i, c := range clients {
			if !ready[i] {
				continue
			}
			if err := s.dispatch(c, buf); err != nil {
				return err
			}
		}

		if acceptable && ready[len(clients)] {
			if err := s.accept(); err != nil {
				return err
			}
		}
	}

	return nil
}

// dispatch reads one frame from c and routes it. Only fatal errors are
// returned; client failures end in eviction.
func (s *Server) dispatch(c *Client, buf []byte) error {
	payload, err := c.ReadFrame(buf)
	if err != nil {
		reason := evictRead
		if errors.Is(err, frame.ErrOversized) {
			reason = evictOversized
		}
		s.evict(c, reason, "read", err)
		return nil
	}

	s.metrics.clientFramesRecv.Inc()
	s.logFrame(c.String(), payload)

	if s.dev == nil {
		s.broadcast(payload, c)
		return nil
	}

	// An empty frame carries nothing the device could accept
	if len(payload) == 0 {
		return nil
	}

	n, err := s.dev.Write(payload)
	if err == nil && n != len(payload) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return s.fatal("device write", fmt.Errorf("%w: %w", ErrDeviceWrite, err))
	}

	s.metrics.deviceFramesWritten.Inc()
	return nil
}

// accept takes one pending connection off the listener. Temporary errors
// are logged with back-off and the loop carries on; anything else means
// the listener is gone.
func (s *Server) accept() error {
	conn, err := s.acceptConn()
	if err != nil {
		s.metrics.acceptErrors.Inc()
		if s.acceptErrs.IsTemporary(err) {
			s.log.WithError(err).Warn("temporary accept error")
			return nil
		}
		return s.fatal("accept", fmt.Errorf("%w: %w", ErrListener, err))
	}

	c, err := newClient(conn, s.cfg.ClientTimeout)
	if err != nil {
		s.log.WithError(err).Warn("dropping accepted connection")
		conn.Close()
		return nil
	}

	if err := s.clients.Add(c); err != nil {
		s.log.WithError(err).Warnf("dropping client %s", c)
		c.Close()
		return nil
	}

	s.metrics.accepts.Inc()
	s.metrics.clients.Set(float64(s.clients.Len()))
	s.log.Infof("accepted client %s", c)
	return nil
}
