package api

import (
	"sync"
	"time"

	"github.com/smazurov/chrometester/internal/events"
)

// maxRetired bounds how many superseded session ids are remembered.
const maxRetired = 64

// sessionFacts collects what is known about one session. Facts are only
// ever added, so the derived state never moves backwards no matter in which
// order the bus delivers events of different types.
type sessionFacts struct {
	status        SessionStatus
	driverStopped bool
	established   bool
	closed        bool
}

func (f *sessionFacts) state() string {
	switch {
	case f.closed:
		return StateClosed
	case f.established:
		return StateEstablished
	case f.driverStopped:
		return StateFailed
	default:
		return StateConnecting
	}
}

// statusTracker folds lifecycle events into a SessionStatus for the most
// recent session.
type statusTracker struct {
	mu      sync.RWMutex
	current *sessionFacts
	retired map[string]struct{}
	unsubs  []func()
}

func newStatusTracker(bus *events.Bus) *statusTracker {
	t := &statusTracker{retired: make(map[string]struct{})}
	t.unsubs = []func(){
		bus.Subscribe(t.onDriverStarted),
		bus.Subscribe(t.onAttemptFailed),
		bus.Subscribe(t.onEstablished),
		bus.Subscribe(t.onDriverStopped),
		bus.Subscribe(t.onClosed),
	}
	return t
}

func (t *statusTracker) snapshot() SessionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return SessionStatus{State: StateIdle}
	}
	s := t.current.status
	s.State = t.current.state()
	return s
}

func (t *statusTracker) close() {
	for _, unsub := range t.unsubs {
		unsub()
	}
}

// update applies fn to the facts of session id. Events of a session that
// has already been superseded are dropped. Callers must not hold t.mu.
func (t *statusTracker) update(id string, fn func(*sessionFacts)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, old := t.retired[id]; old {
		return
	}
	if t.current == nil || t.current.status.SessionID != id {
		if t.current != nil {
			if len(t.retired) >= maxRetired {
				clear(t.retired)
			}
			t.retired[t.current.status.SessionID] = struct{}{}
		}
		t.current = &sessionFacts{status: SessionStatus{SessionID: id}}
	}
	fn(t.current)
}

func (t *statusTracker) onDriverStarted(e events.DriverStartedEvent) {
	t.update(e.SessionID, func(f *sessionFacts) {
		f.status.DriverPath = e.Path
		f.status.DriverPID = e.PID
	})
}

func (t *statusTracker) onAttemptFailed(e events.ConnectAttemptFailedEvent) {
	t.update(e.SessionID, func(f *sessionFacts) {
		f.status.Address = e.Address
		if e.Attempt > f.status.FailedAttempts {
			f.status.FailedAttempts = e.Attempt
			f.status.LastError = e.Error
		}
	})
}

func (t *statusTracker) onEstablished(e events.SessionEstablishedEvent) {
	t.update(e.SessionID, func(f *sessionFacts) {
		f.established = true
		f.status.RemoteSessionID = e.RemoteSessionID
		f.status.Address = e.Address
		f.status.Attempts = e.Attempts
		f.status.EstablishedAt = timestamp(e.Timestamp)
	})
}

// onDriverStopped marks a session that never connected as failed. For an
// established session the stop is part of teardown and SessionClosedEvent
// decides the state.
func (t *statusTracker) onDriverStopped(e events.DriverStoppedEvent) {
	t.update(e.SessionID, func(f *sessionFacts) {
		f.driverStopped = true
		if f.status.DriverPath == "" {
			f.status.DriverPath = e.Path
		}
	})
}

func (t *statusTracker) onClosed(e events.SessionClosedEvent) {
	t.update(e.SessionID, func(f *sessionFacts) {
		f.closed = true
		if f.status.RemoteSessionID == "" {
			f.status.RemoteSessionID = e.RemoteSessionID
		}
		f.status.ClosedAt = timestamp(e.Timestamp)
	})
}

func timestamp(ts time.Time) *time.Time {
	return &ts
}
