package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeDriverStarted uint32 = iota + 1
	TypeDriverStopped
	TypeConnectAttemptFailed
	TypeSessionEstablished
	TypeSessionClosed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DriverStartedEvent is published once the driver process has been launched.
type DriverStartedEvent struct {
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	Args      []string  `json:"args"`
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for DriverStartedEvent.
func (e DriverStartedEvent) Type() uint32 { return TypeDriverStarted }

// DriverStoppedEvent is published after the driver process has been stopped.
type DriverStoppedEvent struct {
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	ExitCode  int       `json:"exit_code"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for DriverStoppedEvent.
func (e DriverStoppedEvent) Type() uint32 { return TypeDriverStopped }

// ConnectAttemptFailedEvent is published for every failed handshake.
type ConnectAttemptFailedEvent struct {
	SessionID string    `json:"session_id"`
	Address   string    `json:"address"`
	Attempt   int       `json:"attempt"` // 1-based
	Remaining int       `json:"remaining"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for ConnectAttemptFailedEvent.
func (e ConnectAttemptFailedEvent) Type() uint32 { return TypeConnectAttemptFailed }

// SessionEstablishedEvent is published when a remote session is ready for use.
type SessionEstablishedEvent struct {
	SessionID       string        `json:"session_id"`
	RemoteSessionID string        `json:"remote_session_id"`
	Address         string        `json:"address"`
	Attempts        int           `json:"attempts"`
	Elapsed         time.Duration `json:"elapsed"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for SessionEstablishedEvent.
func (e SessionEstablishedEvent) Type() uint32 { return TypeSessionEstablished }

// SessionClosedEvent is published when a session has been torn down.
type SessionClosedEvent struct {
	SessionID       string        `json:"session_id"`
	RemoteSessionID string        `json:"remote_session_id"`
	Lifetime        time.Duration `json:"lifetime"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for SessionClosedEvent.
func (e SessionClosedEvent) Type() uint32 { return TypeSessionClosed }
