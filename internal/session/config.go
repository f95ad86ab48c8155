package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"time"
)

// Defaults.
const (
	DefaultAddress  = "http://localhost:9515"
	DefaultAttempts = 5
	DefaultDelay    = 5 * time.Second
)

// Policy controls the connect loop. It is frozen once connecting begins.
type Policy struct {
	// Attempts is the number of retries after the first handshake, so the
	// loop makes at most Attempts+1 handshakes.
	Attempts int
	// Delay is the pause between two failed handshakes.
	Delay time.Duration
	// Address is the driver's control endpoint.
	Address string
}

// Config is the effective configuration of a session.
type Config struct {
	// BinaryPath overrides platform-based driver selection.
	BinaryPath string
	// RootDir holds bin/ and is the driver's working directory. Empty means
	// the current directory.
	RootDir string
	// BrowserBinary is passed to the driver as the Chrome executable. Empty
	// leaves the choice to the driver.
	BrowserBinary string
	// Args are browser flags. Empty means DefaultArgs.
	Args []string
	// CaptureOutput streams the driver's stdout/stderr into the driver logger.
	CaptureOutput bool

	Policy Policy
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		CaptureOutput: true,
		Policy: Policy{
			Attempts: DefaultAttempts,
			Delay:    DefaultDelay,
			Address:  DefaultAddress,
		},
	}
}

func (c Config) clone() Config {
	c.Args = slices.Clone(c.Args)
	return c
}

// Validate checks the retry policy and control address.
func (c Config) Validate() error {
	if c.Policy.Attempts < 0 {
		return &ConfigError{Key: "attempts", Err: fmt.Errorf("must not be negative, got %d", c.Policy.Attempts)}
	}
	if c.Policy.Delay < 0 {
		return &ConfigError{Key: "delay", Err: fmt.Errorf("must not be negative, got %v", c.Policy.Delay)}
	}
	if c.Policy.Address == "" {
		return &ConfigError{Key: "controlAddress", Err: errors.New("must not be empty")}
	}
	u, err := url.Parse(c.Policy.Address)
	if err != nil {
		return &ConfigError{Key: "controlAddress", Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Key: "controlAddress", Err: fmt.Errorf("%q is not an http(s) URL", c.Policy.Address)}
	}
	return nil
}

// Option changes a Config.
type Option func(*Config)

// WithBinaryPath overrides the driver executable.
func WithBinaryPath(path string) Option {
	return func(c *Config) { c.BinaryPath = path }
}

// WithRootDir sets the directory holding bin/.
func WithRootDir(dir string) Option {
	return func(c *Config) { c.RootDir = dir }
}

// WithBrowserBinary sets the Chrome executable passed to the driver.
func WithBrowserBinary(path string) Option {
	return func(c *Config) { c.BrowserBinary = path }
}

// WithArgs replaces the browser flags.
func WithArgs(args ...string) Option {
	return func(c *Config) { c.Args = slices.Clone(args) }
}

// WithCaptureOutput toggles driver output capture.
func WithCaptureOutput(capture bool) Option {
	return func(c *Config) { c.CaptureOutput = capture }
}

// WithAttempts sets the retry count.
func WithAttempts(n int) Option {
	return func(c *Config) { c.Policy.Attempts = n }
}

// WithDelay sets the pause between handshake attempts.
func WithDelay(d time.Duration) Option {
	return func(c *Config) { c.Policy.Delay = d }
}

// WithControlAddress sets the driver's control endpoint.
func WithControlAddress(address string) Option {
	return func(c *Config) { c.Policy.Address = address }
}

// optionKeys lists recognized keys in application order. Aliases come
// before their primary key so the primary wins when both are present.
var optionKeys = []struct {
	key   string
	apply func(v any) (Option, error)
}{
	{"chromeBinary", stringOption(WithBinaryPath)},
	{"binaryPath", stringOption(WithBinaryPath)},
	{"attempts", func(v any) (Option, error) {
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative, got %d", n)
		}
		return WithAttempts(int(n)), nil
	}},
	{"sleep", microsOption},
	{"delay", microsOption},
	{"chromeAddress", stringOption(WithControlAddress)},
	{"controlAddress", stringOption(WithControlAddress)},
	{"browserBinary", stringOption(WithBrowserBinary)},
}

// OptionsFromMap converts a loosely typed options map into Options.
// Recognized keys are binaryPath (alias chromeBinary), attempts, delay
// (alias sleep, integer microseconds), controlAddress (alias chromeAddress)
// and browserBinary. Unknown keys are ignored; a value of the wrong type is
// a *ConfigError.
func OptionsFromMap(m map[string]any) ([]Option, error) {
	var opts []Option
	for _, k := range optionKeys {
		v, ok := m[k.key]
		if !ok {
			continue
		}
		opt, err := k.apply(v)
		if err != nil {
			return nil, &ConfigError{Key: k.key, Err: err}
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func stringOption(fn func(string) Option) func(any) (Option, error) {
	return func(v any) (Option, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return fn(s), nil
	}
}

func microsOption(v any) (Option, error) {
	n, err := toInt(v)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("must not be negative, got %d", n)
	}
	return WithDelay(time.Duration(n) * time.Microsecond), nil
}

// toInt accepts any integer type, integral floats (as produced by JSON and
// TOML decoders) and json.Number.
func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d out of range", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}
