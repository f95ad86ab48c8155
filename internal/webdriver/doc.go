// Package webdriver implements the two WebDriver calls needed to own a
// browser session: creating it and deleting it. Everything else in the
// protocol is left to the caller holding the session id.
package webdriver
