package session

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by Handle before a session has been established.
var ErrNoSession = errors.New("session: no session established")

// LaunchError means the driver executable could not be started. It is not
// retried.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("session: launch driver %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExhaustedError means every handshake attempt failed. Err is the error of
// the last attempt, unchanged.
type ExhaustedError struct {
	Address  string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("session: no connection to %s after %d attempts: %v", e.Address, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("session: invalid %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
