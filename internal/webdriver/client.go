package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"

	"github.com/smazurov/chrometester/internal/logging"
	"github.com/smazurov/chrometester/internal/version"
)

// DefaultTimeout bounds a single request to the control endpoint.
const DefaultTimeout = 60 * time.Second

// maxBody caps how much of a reply is read.
const maxBody = 4 << 20

// maxMessage caps the body excerpt kept in an error for non-JSON replies.
const maxMessage = 200

// Session is a live remote session on the driver.
type Session struct {
	ID      string
	Address string
	// Capabilities is the raw JSON object the driver negotiated.
	Capabilities string
}

// BrowserVersion reports the browser version the driver negotiated, if any.
func (s *Session) BrowserVersion() string {
	v := gjson.Get(s.Capabilities, "browserVersion")
	if !v.Exists() {
		v = gjson.Get(s.Capabilities, "version")
	}
	return v.String()
}

// Client talks to one driver control endpoint.
type Client struct {
	address    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger overrides the webdriver module logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for address, e.g. "http://localhost:9515".
func NewClient(address string, opts ...ClientOption) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = DefaultTimeout

	c := &Client{
		address:    strings.TrimRight(address, "/"),
		httpClient: hc,
		logger:     logging.GetLogger("webdriver"),
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSession asks the driver to start a browser and returns the session.
func (c *Client) NewSession(ctx context.Context, caps Capabilities) (*Session, error) {
	data, err := json.Marshal(caps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capabilities: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, "/session", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := replyError(status, body); err != nil {
		return nil, err
	}

	reply := gjson.ParseBytes(body)
	id := reply.Get("value.sessionId")
	capabilities := reply.Get("value.capabilities")
	if !id.Exists() {
		// Legacy JSON wire protocol.
		id = reply.Get("sessionId")
		capabilities = reply.Get("value")
	}
	if id.String() == "" {
		return nil, &Error{StatusCode: status, Code: "invalid response", Message: "no session id in reply"}
	}

	s := &Session{ID: id.String(), Address: c.address, Capabilities: capabilities.Raw}
	c.logger.Debug("Session created", "session_id", s.ID, "browser_version", s.BrowserVersion())
	return s, nil
}

// DeleteSession ends the session and closes its browser. A session the
// driver no longer knows about is not an error.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	body, status, err := c.do(ctx, http.MethodDelete, "/session/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if status == http.StatusNotFound {
		return nil
	}
	if err := replyError(status, body); err != nil {
		return err
	}
	c.logger.Debug("Session deleted", "session_id", id)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, data []byte) ([]byte, int, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.address+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read reply: %w", err)
	}
	return body, resp.StatusCode, nil
}

// replyError extracts a driver error from a reply, or returns nil.
func replyError(status int, body []byte) error {
	reply := gjson.ParseBytes(body)

	if code := reply.Get("value.error"); code.Exists() && code.String() != "" {
		return &Error{StatusCode: status, Code: code.String(), Message: reply.Get("value.message").String()}
	}
	if legacy := reply.Get("status"); legacy.Exists() && legacy.Int() != 0 {
		return &Error{
			StatusCode: status,
			Code:       fmt.Sprintf("status %d", legacy.Int()),
			Message:    reply.Get("value.message").String(),
		}
	}
	if status < 200 || status > 299 {
		msg := truncate(strings.TrimSpace(string(body)), maxMessage)
		return &Error{StatusCode: status, Code: http.StatusText(status), Message: msg}
	}
	return nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
