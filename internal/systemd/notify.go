// Package systemd reports service state to the systemd supervisor.
package systemd

import (
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Outside a Type=notify unit every
// call is a no-op.
type Notifier struct {
	logger *slog.Logger
	notify func(unsetEnv bool, state string) (bool, error)
}

// NewNotifier creates a notifier that logs delivery problems to logger.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger, notify: daemon.SdNotify}
}

// Ready tells systemd the service finished starting.
func (n *Notifier) Ready(status string) {
	n.send(daemon.SdNotifyReady, status)
}

// Stopping tells systemd the service is shutting down.
func (n *Notifier) Stopping(status string) {
	n.send(daemon.SdNotifyStopping, status)
}

func (n *Notifier) send(state, status string) {
	if status != "" {
		state = fmt.Sprintf("%s\nSTATUS=%s", state, status)
	}
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}
