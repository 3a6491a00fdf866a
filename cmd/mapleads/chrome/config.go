// Package chrome implements the browser interfaces with chromedp. It owns
// the Chrome process, tab lifecycle, anti-detection tweaks and the input
// events (typing, hovering, wheel scrolling) the scraper relies on.
package chrome

import (
	"time"
)

// Config holds configuration for a Chrome session.
type Config struct {
	Headless   bool
	Stealth    bool   // Enable anti-bot detection evasion
	ChromePath string // Chrome binary; found automatically when empty
	UserAgent  string
	Locale     string // BCP 47 tag, e.g. en-GB

	// NavigateTimeout bounds navigations whose context has no deadline.
	NavigateTimeout time.Duration

	WindowWidth  int
	WindowHeight int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		UserAgent:       defaultUserAgent,
		Locale:          "en-GB",
		NavigateTimeout: 60 * time.Second,
		WindowWidth:     1920,
		WindowHeight:    1080,
	}
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.Locale == "" {
		c.Locale = def.Locale
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = def.NavigateTimeout
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		c.WindowWidth, c.WindowHeight = def.WindowWidth, def.WindowHeight
	}
	return c
}
