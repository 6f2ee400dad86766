package relay

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExceeded = errors.New("client registry is full")
	ErrDuplicateClient  = errors.New("client is already registered")
	ErrAlreadyRunning   = errors.New("server is already running")
	ErrServerClosed     = errors.New("server is closed")
	ErrDeviceWrite      = errors.New("device write failed")
	ErrListener         = errors.New("listener failed")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrUnsupported      = errors.New("platform not supported")
)

// ClientError is a failure scoped to one client. It is recovered by evicting
// that client and never stops the server.
type ClientError struct {
	Client *Client
	Op     string
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client %s: %s: %v", e.Client, e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// FatalError stops both loops. It is reported by Stop and Err.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
