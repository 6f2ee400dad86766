package relay

// readLoop moves frames from the device to every client. A failed or empty
// device read is tolerated and the loop goes back to waiting; only the
// writer side treats device errors as fatal.
func (s *Server) readLoop() error {
	if s.dev == nil {
		return nil
	}

	s.log.Info("starting reader loop")
	defer s.log.Info("stopping reader loop")

	buf := make([]byte, s.cfg.MaxFrameSize)

	for s.isRunning() {
		if !s.dev.WaitReadable(s.cfg.WaitTimeout) {
			continue
		}

		n, err := s.dev.Read(buf)
		if err != nil || n <= 0 {
			s.log.WithError(err).Debugf("device read returned %d", n)
			continue
		}

		s.metrics.deviceFramesRead.Inc()
		s.logFrame("device", buf[:n])
		s.broadcast(buf[:n], nil)
	}

	return nil
}
