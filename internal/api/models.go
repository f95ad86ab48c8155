package api

import "time"

// HealthData is the body of the health endpoint.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData is the body of the version endpoint.
type VersionData struct {
	Version   string `json:"version" example:"v0.3.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-02T15:04:05Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"OS and architecture"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// Session states reported by the status endpoint.
const (
	StateIdle        = "idle"
	StateConnecting  = "connecting"
	StateEstablished = "established"
	StateFailed      = "failed"
	StateClosed      = "closed"
)

// SessionStatus describes the most recent session.
type SessionStatus struct {
	State           string     `json:"state" enum:"idle,connecting,established,failed,closed" doc:"Lifecycle state"`
	SessionID       string     `json:"session_id,omitempty" doc:"Local session id"`
	RemoteSessionID string     `json:"remote_session_id,omitempty" doc:"WebDriver session id"`
	Address         string     `json:"address,omitempty" example:"http://localhost:9515" doc:"Driver control endpoint"`
	DriverPath      string     `json:"driver_path,omitempty" doc:"Driver executable"`
	DriverPID       int        `json:"driver_pid,omitempty" doc:"Driver process id"`
	FailedAttempts  int        `json:"failed_attempts" doc:"Failed handshakes of the current session"`
	Attempts        int        `json:"attempts,omitempty" doc:"Handshakes needed to connect"`
	LastError       string     `json:"last_error,omitempty" doc:"Error of the last failed handshake"`
	EstablishedAt   *time.Time `json:"established_at,omitempty" doc:"When the session became ready"`
	ClosedAt        *time.Time `json:"closed_at,omitempty" doc:"When the session was torn down"`
}

// SessionStatusResponse wraps SessionStatus.
type SessionStatusResponse struct {
	Body SessionStatus
}
