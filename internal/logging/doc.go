// Package logging provides slog loggers scoped by module with runtime
// adjustable levels.
//
// Call Initialize once from main, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"driver":  "debug",
//			"session": "info",
//		},
//	})
//
//	logger := logging.GetLogger("session")
//	logger.Info("Session established", "session_id", id, "attempts", n)
//
// Loggers handed out before Initialize keep working: their level is held in
// a slog.LevelVar and their handler is rebuilt when Initialize runs.
//
// Records go to stdout when it is attached to something useful (terminal,
// pipe, socket or regular file) and to the systemd journal when one is
// reachable. Inside the journal every record carries
// SYSLOG_IDENTIFIER=chrometester and the upper-cased attributes, so
//
//	journalctl -t chrometester MODULE=driver
//
// shows only the chromedriver output.
package logging
