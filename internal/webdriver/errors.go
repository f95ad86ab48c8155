package webdriver

import "fmt"

// Error is a failure reported by the driver itself, as opposed to a
// transport error.
type Error struct {
	StatusCode int    // HTTP status
	Code       string // W3C error code, or "status N" for legacy replies
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webdriver: %s (http %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("webdriver: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}
