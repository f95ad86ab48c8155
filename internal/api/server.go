// Package api serves session status, lifecycle events and Prometheus
// metrics over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/chrometester/internal/events"
	"github.com/smazurov/chrometester/internal/logging"
	"github.com/smazurov/chrometester/internal/version"
)

// Options configures the API server.
type Options struct {
	EventBus       *events.Bus
	MetricsHandler http.Handler // optional, served at /metrics
}

// Server is the HTTP status server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	eventBus   *events.Bus
	tracker    *statusTracker
	logger     *slog.Logger
}

// NewServer creates the server and starts tracking session events.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("chrometester API", version.Version)
	config.Info.Description = "Status of the managed chromedriver session"
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)
	api.UseMiddleware(HTTPLoggingMiddleware)

	s := &Server{
		api:      api,
		mux:      mux,
		eventBus: opts.EventBus,
		tracker:  newStatusTracker(opts.EventBus),
		logger:   logging.GetLogger("api"),
	}

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	s.registerRoutes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until Stop. It returns http.ErrServerClosed after Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and all connections, including event streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	s.tracker.close()
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthData{Status: "ok", Message: "API is healthy"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*VersionResponse, error) {
		info := version.Get()
		return &VersionResponse{Body: VersionData{
			Version:   info.Version,
			GitCommit: info.GitCommit,
			BuildDate: info.BuildDate,
			GoVersion: info.GoVersion,
			Platform:  info.Platform,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session status",
		Description: "State of the most recent browser session",
		Tags:        []string{"session"},
	}, func(_ context.Context, _ *struct{}) (*SessionStatusResponse, error) {
		return &SessionStatusResponse{Body: s.tracker.snapshot()}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Session lifecycle events",
		Tags:        []string{"session"},
	}, map[string]any{
		"driver-started":         events.DriverStartedEvent{},
		"driver-stopped":         events.DriverStoppedEvent{},
		"connect-attempt-failed": events.ConnectAttemptFailedEvent{},
		"session-established":    events.SessionEstablishedEvent{},
		"session-closed":         events.SessionClosedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.DriverStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DriverStoppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConnectAttemptFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionEstablishedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionClosedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
