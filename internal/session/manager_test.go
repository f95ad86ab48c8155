//go:build !windows

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/chrometester/internal/events"
	"github.com/smazurov/chrometester/internal/process"
	"github.com/smazurov/chrometester/internal/webdriver"
)

// writeDriver installs a fake chromedriver at root/bin/chromedriver-linux.
func writeDriver(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\nexec sleep 30\n"
	if err := os.WriteFile(filepath.Join(root, "bin", BinaryLinux), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func testConfig(root string) Config {
	cfg := DefaultConfig()
	cfg.RootDir = root
	cfg.CaptureOutput = false
	cfg.Policy.Delay = 10 * time.Millisecond
	return cfg
}

func newTestManager(cfg Config, d *fakeDialer, s *recordingSleeper, opts ...ManagerOption) *Manager {
	base := []ManagerOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPlatform("linux"),
		WithDialer(func(string) Dialer { return d }),
		WithSleeper(s.sleep),
	}
	return NewManager(cfg, append(base, opts...)...)
}

func TestScenarioImmediateAvailability(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	s := &recordingSleeper{}
	m := newTestManager(testConfig(root), d, s)
	defer m.Close()

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if sess.Handle() == nil {
		t.Fatal("expected a handle")
	}
	if d.callCount() != 1 || sess.Attempts != 1 {
		t.Errorf("handshakes = %d, Attempts = %d, want 1", d.callCount(), sess.Attempts)
	}
	if s.count() != 0 {
		t.Errorf("sleeps = %d, want 0", s.count())
	}

	info := sess.Driver()
	if info.State != process.StateRunning {
		t.Errorf("driver state = %v, want running", info.State)
	}
	if want := filepath.Join(root, "bin", BinaryLinux); info.Path != want {
		t.Errorf("driver path = %q, want %q", info.Path, want)
	}
	if info.Dir != root {
		t.Errorf("driver dir = %q, want %q", info.Dir, root)
	}
}

func TestScenarioLateAvailability(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{failFirst: 2}
	s := &recordingSleeper{}
	m := newTestManager(testConfig(root), d, s)
	defer m.Close()

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if d.callCount() != 3 || sess.Attempts != 3 {
		t.Errorf("handshakes = %d, Attempts = %d, want 3", d.callCount(), sess.Attempts)
	}
	if s.count() != 2 {
		t.Errorf("sleeps = %d, want 2", s.count())
	}
}

func TestScenarioNeverAvailable(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{failFirst: -1}
	s := &recordingSleeper{}
	cfg := testConfig(root)
	cfg.Policy.Attempts = 2

	bus := events.New()
	stopped := make(chan events.DriverStoppedEvent, 1)
	unsub := bus.Subscribe(func(e events.DriverStoppedEvent) { stopped <- e })
	defer unsub()

	m := newTestManager(cfg, d, s, WithEventBus(bus))
	defer m.Close()

	_, err := m.Session(context.Background())
	if d.callCount() != 3 {
		t.Errorf("handshakes = %d, want 3", d.callCount())
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %v", err)
	}
	if want := "attempt 3: dial tcp 127.0.0.1:9515: connect: connection refused"; exhausted.Err.Error() != want {
		t.Errorf("last error = %q, want %q", exhausted.Err, want)
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Error("driver was not stopped after connect failure")
	}

	if _, err := m.Handle(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Handle after failure = %v, want ErrNoSession", err)
	}
}

func TestScenarioAgainstControlEndpoint(t *testing.T) {
	root := writeDriver(t)

	var requests atomic.Int32
	var deletes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			n := requests.Add(1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"value":{"error":"session not created","message":"attempt %d"}}`, n)
				return
			}
			fmt.Fprint(w, `{"value":{"sessionId":"e2e","capabilities":{"browserVersion":"124.0"}}}`)
		case http.MethodDelete:
			deletes.Add(1)
			fmt.Fprint(w, `{"value":null}`)
		}
	}))
	defer srv.Close()

	cfg := testConfig(root)
	cfg.Policy.Address = srv.URL

	m := NewManager(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPlatform("linux"))

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("handshakes = %d, want 3", got)
	}
	if h := sess.Handle(); h.ID != "e2e" || h.BrowserVersion() != "124.0" {
		t.Errorf("handle = %+v", h)
	}

	m.Close()
	if got := deletes.Load(); got != 1 {
		t.Errorf("remote deletes = %d, want 1", got)
	}
}

func TestExhaustedAgainstControlEndpoint(t *testing.T) {
	root := writeDriver(t)

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"value":{"error":"session not created","message":"attempt %d"}}`, n)
	}))
	defer srv.Close()

	cfg := testConfig(root)
	cfg.Policy.Address = srv.URL
	cfg.Policy.Attempts = 2

	m := NewManager(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPlatform("linux"))
	defer m.Close()

	_, err := m.Session(context.Background())

	var wdErr *webdriver.Error
	if !errors.As(err, &wdErr) {
		t.Fatalf("expected *webdriver.Error in chain, got %v", err)
	}
	if wdErr.Message != "attempt 3" {
		t.Errorf("surfaced error message = %q, want the last attempt's", wdErr.Message)
	}
}

func TestSessionIsReused(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	first, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	second, err := m.Session(context.Background(), "--window-size=800,600")
	if err != nil {
		t.Fatalf("second Session failed: %v", err)
	}

	if first != second {
		t.Error("second call returned a different session")
	}
	if d.callCount() != 1 {
		t.Errorf("handshakes = %d, want 1", d.callCount())
	}
	if !reflect.DeepEqual(d.caps[0].Args, DefaultArgs()) {
		t.Errorf("args = %v, want defaults", d.caps[0].Args)
	}
}

func TestConcurrentFirstCalls(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{failFirst: 1}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	const callers = 10
	results := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Session(context.Background())
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		if s != results[0] {
			t.Errorf("caller %d got a different session", i)
		}
	}
	if d.callCount() != 2 {
		t.Errorf("handshakes = %d, want 2", d.callCount())
	}
}

func TestExplicitArgsReplaceDefaults(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	sess, err := m.Session(context.Background(), "--window-size=800,600")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	want := []string{"--window-size=800,600"}
	if !reflect.DeepEqual(d.caps[0].Args, want) {
		t.Errorf("args = %v, want %v", d.caps[0].Args, want)
	}
	if !reflect.DeepEqual(sess.Config().Args, want) {
		t.Errorf("session config args = %v, want %v", sess.Config().Args, want)
	}
}

func TestBrowserBinaryOnlyWhenConfigured(t *testing.T) {
	root := writeDriver(t)

	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	if _, err := m.Session(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	m.Close()
	if d.caps[0].Binary != "" {
		t.Errorf("Binary = %q, want empty", d.caps[0].Binary)
	}

	d = &fakeDialer{}
	m = newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()
	m.Apply(WithBrowserBinary("/usr/bin/chromium"))
	if _, err := m.Session(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if d.caps[0].Binary != "/usr/bin/chromium" {
		t.Errorf("Binary = %q, want /usr/bin/chromium", d.caps[0].Binary)
	}
}

func TestSettersBeforeSession(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{failFirst: -1}
	s := &recordingSleeper{}
	m := newTestManager(testConfig(root), d, s)
	defer m.Close()

	m.SetAttempts(1)
	m.SetDelay(42 * time.Millisecond)
	m.SetControlAddress("http://127.0.0.1:9516")

	_, err := m.Session(context.Background())
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %v", err)
	}
	if d.callCount() != 2 {
		t.Errorf("handshakes = %d, want 2", d.callCount())
	}
	if exhausted.Address != "http://127.0.0.1:9516" {
		t.Errorf("Address = %q", exhausted.Address)
	}
	if len(s.delays) != 1 || s.delays[0] != 42*time.Millisecond {
		t.Errorf("delays = %v, want [42ms]", s.delays)
	}
}

func TestSettersAfterSessionAreIgnored(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	before := sess.Config()

	m.SetBinaryPath("/elsewhere/chromedriver")
	m.SetAttempts(99)
	m.SetDelay(time.Minute)
	m.SetControlAddress("http://127.0.0.1:1")

	after := sess.Config()
	if after.BinaryPath != before.BinaryPath || after.Policy != before.Policy {
		t.Errorf("session config changed: before %+v, after %+v", before, after)
	}
	if got := m.Config(); got.Policy != before.Policy || got.BinaryPath != before.BinaryPath {
		t.Errorf("manager config changed after session: %+v", got)
	}

	again, err := m.Session(context.Background())
	if err != nil || again != sess {
		t.Errorf("Session after setters = %p, %v; want %p", again, err, sess)
	}
}

func TestSessionWithOptionsMap(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{failFirst: -1}
	s := &recordingSleeper{}

	var dialed []string
	m := newTestManager(testConfig(root), d, s, WithDialer(func(address string) Dialer {
		dialed = append(dialed, address)
		return d
	}))
	defer m.Close()

	_, err := m.SessionWithOptions(context.Background(), map[string]any{
		"attempts":      1,
		"sleep":         42000,
		"chromeAddress": "http://127.0.0.1:9516",
		"unknown":       true,
	})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %v", err)
	}
	if d.callCount() != 2 {
		t.Errorf("handshakes = %d, want 2", d.callCount())
	}
	if len(s.delays) != 1 || s.delays[0] != 42*time.Millisecond {
		t.Errorf("delays = %v, want [42ms]", s.delays)
	}
	if !reflect.DeepEqual(dialed, []string{"http://127.0.0.1:9516"}) {
		t.Errorf("dialed = %v", dialed)
	}
}

func TestSessionWithOptionsIgnoredOnceEstablished(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	first, err := m.SessionWithOptions(context.Background(), map[string]any{"attempts": 2}, "--headless")
	if err != nil {
		t.Fatalf("SessionWithOptions failed: %v", err)
	}
	if got := first.Config().Policy.Attempts; got != 2 {
		t.Errorf("session attempts = %d, want 2", got)
	}

	second, err := m.SessionWithOptions(context.Background(),
		map[string]any{"attempts": 9, "controlAddress": "http://127.0.0.1:1"}, "--window-size=800,600")
	if err != nil {
		t.Fatalf("second SessionWithOptions failed: %v", err)
	}
	if second != first {
		t.Errorf("second call returned %p, want %p", second, first)
	}
	if got := m.Config(); got.Policy.Attempts != 2 || got.Policy.Address != DefaultAddress {
		t.Errorf("manager config changed by ignored options: %+v", got.Policy)
	}
	if !reflect.DeepEqual(first.Config().Args, []string{"--headless"}) {
		t.Errorf("session args = %v", first.Config().Args)
	}
	if d.callCount() != 1 {
		t.Errorf("handshakes = %d, want 1", d.callCount())
	}
}

func TestSessionWithInvalidOptions(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	_, err := m.SessionWithOptions(context.Background(), map[string]any{"attempts": "five"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "attempts" {
		t.Fatalf("expected *ConfigError for attempts, got %v", err)
	}
	if d.callCount() != 0 {
		t.Errorf("handshakes = %d, want 0", d.callCount())
	}
	if _, err := m.Handle(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Handle after invalid options = %v, want ErrNoSession", err)
	}
}

func TestHandle(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})

	if _, err := m.Handle(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Handle before Session = %v, want ErrNoSession", err)
	}

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	h, err := m.Handle()
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if h != sess.Handle() || h.ID != "remote-1" {
		t.Errorf("Handle = %+v", h)
	}

	m.Close()
	if _, err := m.Handle(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Handle after Close = %v, want ErrNoSession", err)
	}
	if sess.Handle() != nil {
		t.Error("closed session still exposes its handle")
	}
}

func TestCloseTearsDown(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := d.deletedIDs(); !reflect.DeepEqual(got, []string{"remote-1"}) {
		t.Errorf("deleted = %v, want [remote-1]", got)
	}
	if state := sess.Driver().State; state != process.StateStopped {
		t.Errorf("driver state = %v, want stopped", state)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})

	if err := m.Close(); err != nil {
		t.Errorf("Close with nothing started = %v", err)
	}

	if _, err := m.Session(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("first Close = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if got := len(d.deletedIDs()); got != 1 {
		t.Errorf("remote deletes = %d, want 1", got)
	}
}

func TestCloseIgnoresDeleteFailure(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{deleteErr: errors.New("connection reset by peer")}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})

	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
	if state := sess.Driver().State; state != process.StateStopped {
		t.Errorf("driver state = %v, want stopped", state)
	}
}

func TestSessionAfterCloseStartsOver(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	first, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	m.Close()

	second, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session after Close failed: %v", err)
	}
	if first == second || first.ID == second.ID {
		t.Error("expected a new session after Close")
	}
}

func TestLaunchFailure(t *testing.T) {
	root := t.TempDir()
	d := &fakeDialer{}
	m := newTestManager(testConfig(root), d, &recordingSleeper{})
	defer m.Close()

	_, err := m.Session(context.Background())

	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected *LaunchError, got %v", err)
	}
	if want := filepath.Join(root, "bin", BinaryLinux); launchErr.Path != want {
		t.Errorf("Path = %q, want %q", launchErr.Path, want)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist in chain, got %v", err)
	}
	if d.callCount() != 0 {
		t.Errorf("handshakes = %d, want 0 after launch failure", d.callCount())
	}

	// No partial state: a corrected configuration succeeds.
	m.SetBinaryPath(filepath.Join(writeDriver(t), "bin", BinaryLinux))
	if _, err := m.Session(context.Background()); err != nil {
		t.Fatalf("Session after fixing binary path failed: %v", err)
	}
}

func TestLaunchFailureNotExecutable(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "chromedriver")
	if err := os.WriteFile(path, []byte("not a program"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(root)
	cfg.BinaryPath = path
	m := newTestManager(cfg, &fakeDialer{}, &recordingSleeper{})
	defer m.Close()

	_, err := m.Session(context.Background())
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected *LaunchError, got %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("expected fs.ErrPermission in chain, got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	root := writeDriver(t)
	cfg := testConfig(root)
	cfg.Policy.Attempts = -3

	d := &fakeDialer{}
	m := newTestManager(cfg, d, &recordingSleeper{})
	defer m.Close()

	_, err := m.Session(context.Background())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "attempts" {
		t.Fatalf("expected attempts *ConfigError, got %v", err)
	}
	if d.callCount() != 0 {
		t.Errorf("handshakes = %d, want 0", d.callCount())
	}
}

func TestEvents(t *testing.T) {
	root := writeDriver(t)
	bus := events.New()

	failed := make(chan events.ConnectAttemptFailedEvent, 4)
	established := make(chan events.SessionEstablishedEvent, 1)
	closed := make(chan events.SessionClosedEvent, 1)
	defer bus.Subscribe(func(e events.ConnectAttemptFailedEvent) { failed <- e })()
	defer bus.Subscribe(func(e events.SessionEstablishedEvent) { established <- e })()
	defer bus.Subscribe(func(e events.SessionClosedEvent) { closed <- e })()

	m := newTestManager(testConfig(root), &fakeDialer{failFirst: 1}, &recordingSleeper{}, WithEventBus(bus))
	sess, err := m.Session(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	m.Close()

	select {
	case e := <-failed:
		if e.Attempt != 1 || e.Remaining != 5 || e.SessionID != sess.ID {
			t.Errorf("failed event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("no ConnectAttemptFailedEvent")
	}
	select {
	case e := <-established:
		if e.RemoteSessionID != "remote-2" || e.Attempts != 2 {
			t.Errorf("established event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("no SessionEstablishedEvent")
	}
	select {
	case e := <-closed:
		if e.SessionID != sess.ID {
			t.Errorf("closed event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("no SessionClosedEvent")
	}
}

func TestRunClosesSession(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}
	wantErr := errors.New("page title mismatch")

	var seen *Session
	err := Run(context.Background(), testConfig(root), func(s *Session) error {
		seen = s
		if s.Handle() == nil {
			t.Error("expected a handle inside Run")
		}
		return wantErr
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPlatform("linux"),
		WithDialer(func(string) Dialer { return d }))

	if !errors.Is(err, wantErr) {
		t.Errorf("Run = %v, want %v", err, wantErr)
	}
	if seen == nil {
		t.Fatal("fn was not called")
	}
	if seen.Handle() != nil {
		t.Error("session still open after Run")
	}
	if state := seen.Driver().State; state != process.StateStopped {
		t.Errorf("driver state = %v, want stopped", state)
	}
}

func TestRunClosesOnPanic(t *testing.T) {
	root := writeDriver(t)
	d := &fakeDialer{}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = Run(context.Background(), testConfig(root), func(*Session) error {
			panic("boom")
		}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithPlatform("linux"),
			WithDialer(func(string) Dialer { return d }))
	}()

	if got := len(d.deletedIDs()); got != 1 {
		t.Errorf("remote deletes = %d, want 1", got)
	}
}

func TestRunConnectFailure(t *testing.T) {
	root := writeDriver(t)
	cfg := testConfig(root)
	cfg.Policy.Attempts = 0

	called := false
	err := Run(context.Background(), cfg, func(*Session) error {
		called = true
		return nil
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPlatform("linux"),
		WithDialer(func(string) Dialer { return &fakeDialer{failFirst: -1} }))

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", exhausted.Attempts)
	}
	if called {
		t.Error("fn called without a session")
	}
}
