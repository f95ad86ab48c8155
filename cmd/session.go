package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/chrometester/internal/logging"
	"github.com/smazurov/chrometester/internal/session"
)

// sessionReport is printed once the session is up.
type sessionReport struct {
	SessionID       string   `json:"session_id"`
	RemoteSessionID string   `json:"remote_session_id"`
	Address         string   `json:"address"`
	BrowserVersion  string   `json:"browser_version,omitempty"`
	Attempts        int      `json:"attempts"`
	DriverPath      string   `json:"driver_path"`
	DriverPID       int      `json:"driver_pid"`
	Args            []string `json:"args"`
}

// CreateSessionCmd creates the session command: open one session, print
// it, optionally hold it open, then tear it down. The exit status tells
// whether a session could be established.
func CreateSessionCmd(cfg func() session.Config) *cobra.Command {
	var hold time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "session [browser-flag...]",
		Short: "Open a browser session once and report it",
		Long: `Starts chromedriver, connects with the configured retry policy and prints the session. ` +
			`Browser flags given as arguments replace the defaults (--disable-gpu --headless --no-sandbox). ` +
			`With --hold the session stays open for that long or until interrupted.`,
		Run: func(c *cobra.Command, args []string) {
			logger := logging.GetLogger("main")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf := cfg()
			if len(args) > 0 {
				conf.Args = args
			}

			err := session.Run(ctx, conf, func(s *session.Session) error {
				h := s.Handle()
				info := s.Driver()
				report := sessionReport{
					SessionID:       s.ID,
					RemoteSessionID: h.ID,
					Address:         h.Address,
					BrowserVersion:  h.BrowserVersion(),
					Attempts:        s.Attempts,
					DriverPath:      info.Path,
					DriverPID:       info.PID,
					Args:            session.ResolveArgs(s.Config().Args),
				}
				if err := printReport(c, report, asJSON); err != nil {
					return err
				}

				if hold > 0 {
					logger.Info("Holding session", "duration", hold)
					select {
					case <-time.After(hold):
					case <-ctx.Done():
					}
				}
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				logger.Error("Session failed", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().DurationVar(&hold, "hold", 0, "Keep the session open for this long before closing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")
	return cmd
}

func printReport(c *cobra.Command, r sessionReport, asJSON bool) error {
	out := c.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(out, "session:   %s\nremote:    %s\naddress:   %s\nbrowser:   %s\nattempts:  %d\ndriver:    %s (pid %d)\n",
		r.SessionID, r.RemoteSessionID, r.Address, r.BrowserVersion, r.Attempts, r.DriverPath, r.DriverPID)
	return nil
}
