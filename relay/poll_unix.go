//go:build unix

package relay

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

const readyEvents = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

// Supported reports whether the relay can run on this platform.
func Supported() error {
	return nil
}

// pollTimeout converts d to poll's millisecond argument, rounding up so a
// short positive wait never turns into a busy loop.
func pollTimeout(d time.Duration) int {
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

// pollReadable waits up to timeout for any of fds to become readable. Hangups
// and errors count as readable so the following read surfaces the failure.
func pollReadable(fds []uintptr, timeout time.Duration) ([]bool, error) {
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	ready := make([]bool, len(fds))
	n, err := unix.Poll(pfds, pollTimeout(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return ready, nil
		}
		return nil, err
	}
	if n == 0 {
		return ready, nil
	}

	for i := range pfds {
		ready[i] = pfds[i].Revents&readyEvents != 0
	}
	return ready, nil
}
