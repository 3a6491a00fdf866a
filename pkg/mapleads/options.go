// Package mapleads provides the public API for scraping business listings
// from Google Maps.
package mapleads

import (
	"github.com/jmylchreest/mapleads/pkg/email"
	"github.com/jmylchreest/mapleads/pkg/pacing"
	"github.com/jmylchreest/mapleads/pkg/places"
)

// Config holds all Scraper configuration.
type Config struct {
	Selectors places.Selectors
	Pacer     pacing.Pacer

	// EmailFinder enriches listings that have a website. Nil uses a
	// browser lookup in the scraper's own session.
	EmailFinder email.Finder

	// Concurrency is the number of listings extracted at once. Values
	// below 2 extract sequentially on the main page.
	Concurrency int

	SearchURL  string
	MaxScrolls int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Selectors:   places.DefaultSelectors(),
		Concurrency: 1,
		SearchURL:   places.SearchURL,
		MaxScrolls:  places.DefaultMaxScrolls,
	}
}

// Option configures a Scraper.
type Option func(*Config)

// WithSelectors overrides the default selectors. Zero values in s keep
// their defaults.
func WithSelectors(s places.Selectors) Option {
	return func(c *Config) {
		c.Selectors = c.Selectors.Override(s)
	}
}

// WithPacer sets the pacer used for every delay.
func WithPacer(p pacing.Pacer) Option {
	return func(c *Config) {
		c.Pacer = p
	}
}

// WithEmailFinder sets the email lookup strategy. Use email.Off to disable
// lookups.
func WithEmailFinder(f email.Finder) Option {
	return func(c *Config) {
		c.EmailFinder = f
	}
}

// WithConcurrency sets how many listings are extracted at once.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithSearchURL sets the search surface URL.
func WithSearchURL(u string) Option {
	return func(c *Config) {
		c.SearchURL = u
	}
}

// WithMaxScrolls caps the number of feed scrolls.
func WithMaxScrolls(n int) Option {
	return func(c *Config) {
		c.MaxScrolls = n
	}
}
