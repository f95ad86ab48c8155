package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/chrometester/internal/events"
	"github.com/smazurov/chrometester/internal/logging"
	"github.com/smazurov/chrometester/internal/metrics"
	"github.com/smazurov/chrometester/internal/process"
	"github.com/smazurov/chrometester/internal/webdriver"
)

// DefaultDeleteTimeout bounds the remote session delete during Close.
const DefaultDeleteTimeout = 5 * time.Second

// Session is an established browser session together with the driver
// process serving it.
type Session struct {
	// ID correlates log lines and events of this session.
	ID        string
	StartedAt time.Time
	// Attempts is the number of handshakes it took to connect.
	Attempts int

	config  Config
	process *process.Process
	dialer  Dialer

	mu     sync.Mutex
	handle *webdriver.Session
}

// Handle returns the remote session, or nil once the session is closed.
func (s *Session) Handle() *webdriver.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Config returns the configuration the session was created with.
func (s *Session) Config() Config {
	return s.config.clone()
}

// Driver returns a snapshot of the driver process.
func (s *Session) Driver() process.Info {
	return s.process.Info()
}

func (s *Session) takeHandle() *webdriver.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle
	s.handle = nil
	return h
}

// Manager creates and owns at most one Session at a time.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	session *Session

	logger        *slog.Logger
	bus           *events.Bus
	newDialer     func(address string) Dialer
	sleep         Sleeper
	platform      string
	deleteTimeout time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger overrides the session module logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithEventBus publishes lifecycle events to bus.
func WithEventBus(bus *events.Bus) ManagerOption {
	return func(m *Manager) { m.bus = bus }
}

// WithDialer replaces the WebDriver client used for handshakes.
func WithDialer(newDialer func(address string) Dialer) ManagerOption {
	return func(m *Manager) { m.newDialer = newDialer }
}

// WithSleeper replaces the pause between handshake attempts.
func WithSleeper(sleep Sleeper) ManagerOption {
	return func(m *Manager) { m.sleep = sleep }
}

// WithPlatform overrides the platform used for driver selection.
func WithPlatform(platform string) ManagerOption {
	return func(m *Manager) { m.platform = platform }
}

// NewManager creates a Manager. Nothing is started until Session is called.
func NewManager(cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg.clone(),
		logger: logging.GetLogger("session"),
		newDialer: func(address string) Dialer {
			return webdriver.NewClient(address)
		},
		sleep:         sleepContext,
		platform:      Platform(),
		deleteTimeout: DefaultDeleteTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the Manager's session, creating it on first use. args
// replace the browser flags of a session being created; they are ignored
// when the session already exists. On failure nothing is left running and
// a later call starts over.
func (m *Manager) Session(ctx context.Context, args ...string) (*Session, error) {
	return m.SessionWithOptions(ctx, nil, args...)
}

// SessionWithOptions is Session with a loosely typed options map applied to
// the configuration first (see OptionsFromMap). Like args, options are
// ignored once a session exists. An invalid map fails with a *ConfigError
// before anything is started.
func (m *Manager) SessionWithOptions(ctx context.Context, options map[string]any, args ...string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		if len(args) > 0 || len(options) > 0 {
			m.logger.Debug("Session already established, ignoring options and args", "session_id", m.session.ID, "args", args)
		}
		return m.session, nil
	}

	if len(options) > 0 {
		opts, err := OptionsFromMap(options)
		if err != nil {
			return nil, err
		}
		for _, opt := range opts {
			opt(&m.cfg)
		}
	}

	cfg := m.cfg.clone()
	if len(args) > 0 {
		cfg.Args = append([]string(nil), args...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := m.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m.session = s
	return s, nil
}

func (m *Manager) open(ctx context.Context, cfg Config) (*Session, error) {
	id := uuid.NewString()
	logger := m.logger.With("session_id", id)

	root, err := ResolveRootDir(cfg.RootDir)
	if err != nil {
		return nil, err
	}
	path := ResolveBinaryPath(m.platform, root, cfg.BinaryPath)

	proc := process.NewProcess("chromedriver", path, nil, root, logger)
	if cfg.CaptureOutput {
		proc.SetLogParser(logging.GetLogger("driver").With("session_id", id), process.ParseDriverLogLevel)
	}

	if err := proc.Start(); err != nil {
		metrics.RecordDriverStart(false)
		return nil, &LaunchError{Path: path, Err: err}
	}
	metrics.RecordDriverStart(true)

	m.publish(events.DriverStartedEvent{
		SessionID: id,
		Path:      path,
		PID:       proc.Info().PID,
		Timestamp: time.Now(),
	})

	caps := webdriver.ChromeCapabilities(ResolveArgs(cfg.Args), cfg.BrowserBinary)
	dialer := m.newDialer(cfg.Policy.Address)

	logger.Info("Connecting to driver",
		"address", cfg.Policy.Address,
		"attempts", cfg.Policy.Attempts,
		"delay", cfg.Policy.Delay,
		"args", caps.Args)

	started := time.Now()
	handle, attempts, err := connect(ctx, dialer, cfg.Policy, caps, m.sleep, func(attempt, remaining int, err error) {
		logger.Debug("Handshake failed", "attempt", attempt, "remaining", remaining, "error", err)
		m.publish(events.ConnectAttemptFailedEvent{
			SessionID: id,
			Address:   cfg.Policy.Address,
			Attempt:   attempt,
			Remaining: remaining,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
	})
	elapsed := time.Since(started)
	metrics.ObserveConnectDuration(elapsed)

	if err != nil {
		logger.Error("Failed to connect to driver", "attempts", attempts, "elapsed", elapsed, "error", err)
		m.stopDriver(id, proc)
		return nil, err
	}

	s := &Session{
		ID:        id,
		StartedAt: time.Now(),
		Attempts:  attempts,
		config:    cfg,
		process:   proc,
		dialer:    dialer,
		handle:    handle,
	}

	metrics.SessionOpened()
	m.publish(events.SessionEstablishedEvent{
		SessionID:       id,
		RemoteSessionID: handle.ID,
		Address:         cfg.Policy.Address,
		Attempts:        attempts,
		Elapsed:         elapsed,
		Timestamp:       s.StartedAt,
	})
	logger.Info("Session established",
		"remote_session_id", handle.ID,
		"browser_version", handle.BrowserVersion(),
		"attempts", attempts,
		"elapsed", elapsed)
	return s, nil
}

// Handle returns the remote session handle. It fails with ErrNoSession
// before Session has succeeded or after Close.
func (m *Manager) Handle() (*webdriver.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, ErrNoSession
	}
	return m.session.Handle(), nil
}

// Config returns the configuration the next session would be created with.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.clone()
}

// Apply changes the configuration. Once a session exists the change is
// logged and dropped.
func (m *Manager) Apply(opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.logger.Warn("Session already established, ignoring configuration change", "session_id", m.session.ID)
		return
	}
	for _, opt := range opts {
		opt(&m.cfg)
	}
}

// SetBinaryPath overrides the driver executable for the next session.
func (m *Manager) SetBinaryPath(path string) { m.Apply(WithBinaryPath(path)) }

// SetAttempts sets the retry count for the next session.
func (m *Manager) SetAttempts(n int) { m.Apply(WithAttempts(n)) }

// SetDelay sets the pause between handshake attempts for the next session.
func (m *Manager) SetDelay(d time.Duration) { m.Apply(WithDelay(d)) }

// SetControlAddress sets the control endpoint for the next session.
func (m *Manager) SetControlAddress(address string) { m.Apply(WithControlAddress(address)) }

// Close tears the session down: the references are dropped first, then the
// remote session is deleted on a best-effort basis and the driver is
// stopped. Close is idempotent and safe to call when nothing was started.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if s == nil {
		return nil
	}
	m.session = nil
	handle := s.takeHandle()

	if handle != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.deleteTimeout)
		if err := s.dialer.DeleteSession(ctx, handle.ID); err != nil {
			m.logger.Warn("Failed to delete remote session", "session_id", s.ID, "remote_session_id", handle.ID, "error", err)
		}
		cancel()
	}

	m.stopDriver(s.ID, s.process)
	metrics.SessionClosed()

	remoteID := ""
	if handle != nil {
		remoteID = handle.ID
	}
	m.publish(events.SessionClosedEvent{
		SessionID:       s.ID,
		RemoteSessionID: remoteID,
		Lifetime:        time.Since(s.StartedAt),
		Timestamp:       time.Now(),
	})
	m.logger.Info("Session closed", "session_id", s.ID, "lifetime", time.Since(s.StartedAt))
	return nil
}

func (m *Manager) stopDriver(id string, proc *process.Process) {
	code := proc.Stop()
	m.publish(events.DriverStoppedEvent{
		SessionID: id,
		Path:      proc.Info().Path,
		ExitCode:  code,
		Timestamp: time.Now(),
	})
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

// Run creates a Manager for cfg, establishes the session and calls fn with
// it. The session is closed on every return path, including a panic in fn.
func Run(ctx context.Context, cfg Config, fn func(*Session) error, opts ...ManagerOption) error {
	m := NewManager(cfg, opts...)
	defer m.Close()

	s, err := m.Session(ctx)
	if err != nil {
		return err
	}
	return fn(s)
}
