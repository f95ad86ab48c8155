package webdriver

import "encoding/json"

// ChromeOptionsKey is the vendor capability chromedriver reads its options from.
const ChromeOptionsKey = "goog:chromeOptions"

// Capabilities describes the browser requested from the driver.
type Capabilities struct {
	BrowserName string
	Args        []string
	// Binary is the browser executable. Empty lets the driver find Chrome.
	Binary string
}

// ChromeCapabilities returns capabilities for Chrome with the given args.
func ChromeCapabilities(args []string, binary string) Capabilities {
	return Capabilities{BrowserName: "chrome", Args: args, Binary: binary}
}

type chromeOptions struct {
	Args   []string `json:"args"`
	Binary string   `json:"binary,omitempty"`
}

type newSessionRequest struct {
	Capabilities struct {
		AlwaysMatch map[string]any `json:"alwaysMatch"`
	} `json:"capabilities"`
	DesiredCapabilities map[string]any `json:"desiredCapabilities"`
}

// MarshalJSON renders the new-session body. Both the W3C and the legacy
// shape are sent so old and new drivers accept it.
func (c Capabilities) MarshalJSON() ([]byte, error) {
	args := c.Args
	if args == nil {
		args = []string{}
	}
	opts := chromeOptions{Args: args, Binary: c.Binary}

	browser := c.BrowserName
	if browser == "" {
		browser = "chrome"
	}

	var req newSessionRequest
	req.Capabilities.AlwaysMatch = map[string]any{
		"browserName":    browser,
		ChromeOptionsKey: opts,
	}
	req.DesiredCapabilities = map[string]any{
		"browserName":    browser,
		"platform":       "ANY",
		ChromeOptionsKey: opts,
	}
	return json.Marshal(req)
}
