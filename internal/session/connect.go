package session

import (
	"context"
	"time"

	"github.com/smazurov/chrometester/internal/metrics"
	"github.com/smazurov/chrometester/internal/webdriver"
)

// Dialer performs the handshake with a driver's control endpoint.
// *webdriver.Client implements it.
type Dialer interface {
	NewSession(ctx context.Context, caps webdriver.Capabilities) (*webdriver.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Sleeper pauses between attempts. It returns early with the context's
// error if ctx is done first.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attemptFailed is called after every failed handshake. remaining is the
// number of handshakes still allowed.
type attemptFailed func(attempt, remaining int, err error)

// connect runs up to policy.Attempts+1 handshakes, sleeping policy.Delay
// between failures. It returns the handle and the number of handshakes
// made. When all fail the result is an *ExhaustedError wrapping the last
// handshake error.
func connect(ctx context.Context, d Dialer, policy Policy, caps webdriver.Capabilities, sleep Sleeper, onFailure attemptFailed) (*webdriver.Session, int, error) {
	total := policy.Attempts + 1
	var lastErr error

	for attempt := 1; attempt <= total; attempt++ {
		handle, err := d.NewSession(ctx, caps)
		if err == nil {
			metrics.RecordConnectAttempt(true)
			return handle, attempt, nil
		}
		metrics.RecordConnectAttempt(false)
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt, err
		}

		remaining := total - attempt
		if onFailure != nil {
			onFailure(attempt, remaining, err)
		}
		if remaining == 0 {
			break
		}
		if err := sleep(ctx, policy.Delay); err != nil {
			return nil, attempt, err
		}
	}

	return nil, total, &ExhaustedError{Address: policy.Address, Attempts: total, Err: lastErr}
}
