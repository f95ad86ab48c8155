package process

import "time"

// State represents the current state of a supervised process.
type State string

// Process states.
const (
	StateIdle     State = "idle"     // Never started
	StateRunning  State = "running"  // Started and not yet exited
	StateStopping State = "stopping" // Stop in progress
	StateStopped  State = "stopped"  // Exited cleanly or stopped on request
	StateError    State = "error"    // Failed to start or crashed
)

// Info is a snapshot of a supervised process.
type Info struct {
	ID        string
	Path      string
	Dir       string
	State     State
	PID       int
	StartedAt time.Time
	ExitCode  int
	LastError error
}
