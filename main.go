package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/chrometester/cmd"
	"github.com/smazurov/chrometester/internal/api"
	"github.com/smazurov/chrometester/internal/config"
	"github.com/smazurov/chrometester/internal/events"
	"github.com/smazurov/chrometester/internal/logging"
	"github.com/smazurov/chrometester/internal/metrics"
	"github.com/smazurov/chrometester/internal/session"
	"github.com/smazurov/chrometester/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"chrometester.toml"`

	// Driver settings
	DriverBinaryPath    string `help:"chromedriver executable, overrides platform selection" toml:"driver.binary_path" env:"DRIVER_BINARY_PATH"`
	DriverRootDir       string `help:"Directory holding bin/, also the driver's working directory" toml:"driver.root_dir" env:"DRIVER_ROOT_DIR"`
	DriverBrowserBinary string `help:"Chrome executable handed to the driver" toml:"driver.browser_binary" env:"DRIVER_BROWSER_BINARY"`
	DriverArgs          string `help:"Comma separated browser flags, replaces the defaults" toml:"driver.args" env:"DRIVER_ARGS"`
	DriverCaptureOutput bool   `help:"Log chromedriver stdout/stderr" default:"true" toml:"driver.capture_output" env:"DRIVER_CAPTURE_OUTPUT"`

	// Connect settings
	ConnectAddress  string `help:"chromedriver control endpoint" default:"http://localhost:9515" toml:"connect.address" env:"CONNECT_ADDRESS"`
	ConnectAttempts int    `help:"Retries after the first handshake" default:"5" toml:"connect.attempts" env:"CONNECT_ATTEMPTS"`
	ConnectDelayMs  int    `help:"Pause between failed handshakes in milliseconds" default:"5000" toml:"connect.delay_ms" env:"CONNECT_DELAY_MS"`

	// Server settings
	ServerAddr string `help:"Status and metrics listen address, empty disables the server" toml:"server.addr" env:"SERVER_ADDR"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession   string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingDriver    string `help:"chromedriver output logging level" default:"info" toml:"logging.driver" env:"LOGGING_DRIVER"`
	LoggingWebdriver string `help:"WebDriver client logging level" default:"info" toml:"logging.webdriver" env:"LOGGING_WEBDRIVER"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// sessionConfig maps CLI options onto a session configuration.
func sessionConfig(opts *Options) session.Config {
	cfg := session.DefaultConfig()
	cfg.BinaryPath = opts.DriverBinaryPath
	cfg.RootDir = opts.DriverRootDir
	cfg.BrowserBinary = opts.DriverBrowserBinary
	cfg.Args = splitList(opts.DriverArgs)
	cfg.CaptureOutput = opts.DriverCaptureOutput
	cfg.Policy = session.Policy{
		Attempts: opts.ConnectAttempts,
		Delay:    time.Duration(opts.ConnectDelayMs) * time.Millisecond,
		Address:  opts.ConnectAddress,
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	var cli humacli.CLI
	var sessionCfg session.Config

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session":   opts.LoggingSession,
				"driver":    opts.LoggingDriver,
				"webdriver": opts.LoggingWebdriver,
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")
		sessionCfg = sessionConfig(opts)

		// Create event bus for in-process event handling
		eventBus := events.New()
		manager := session.NewManager(sessionCfg, session.WithEventBus(eventBus))

		var server *api.Server
		if opts.ServerAddr != "" {
			server = api.NewServer(&api.Options{
				EventBus:       eventBus,
				MetricsHandler: metrics.Handler(),
			})
		}

		notifier := systemd.NewNotifier(logger)
		ctx, cancel := context.WithCancel(context.Background())

		// Logging levels follow the config file while running
		watcher := config.NewWatcher(opts.Config, func(path string) (logging.Config, error) {
			return config.LoadLoggingConfig(path), nil
		}, logger)
		watcher.OnReload(logging.UpdateLevels)

		// Default command opens the session and keeps it until shutdown
		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher disabled", "path", opts.Config, "error", watchErr)
			}

			if server != nil {
				go func() {
					if startErr := server.Start(opts.ServerAddr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
						logger.Error("Failed to start API server", "error", startErr)
						os.Exit(1)
					}
				}()
			}

			s, err := manager.Session(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Error("Failed to establish session", "error", err)
				os.Exit(1)
			}
			logger.Info("Session ready", "session_id", s.ID, "remote_session_id", s.Handle().ID)

			notifier.Ready("session " + s.ID)

			<-ctx.Done()
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping("")
			cancel()

			_ = manager.Close()
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping API server", "error", stopErr)
				}
			}
		})
	})

	currentConfig := func() session.Config { return sessionCfg }
	cli.Root().AddCommand(cmd.CreateSessionCmd(currentConfig))
	cli.Root().AddCommand(cmd.CreateBinaryCmd(currentConfig))
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}
