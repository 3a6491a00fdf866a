// Package browser defines the interface for driving a rendered web page.
// Implement Session and Page to plug in a browser engine; mapleads ships a
// chromedp implementation in cmd/mapleads/chrome.
package browser

import (
	"context"
	"errors"
	"strings"
)

// Session is one browser instance. The main page is owned by the caller
// that created the session; additional pages are owned by whoever opens
// them and must be closed.
type Session interface {
	// MainPage returns the session's default page.
	MainPage() Page

	// NewPage opens a new, isolated page in the same browser.
	NewPage(ctx context.Context) (Page, error)

	// Close releases the browser and every page it opened.
	Close() error
}

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error

	// WaitLoaded blocks until the document has been parsed.
	WaitLoaded(ctx context.Context) error

	// Fill replaces the value of the first element matching loc with text.
	Fill(ctx context.Context, loc Locator, text string) error

	// PressEnter sends an Enter key press to the focused element.
	PressEnter(ctx context.Context) error

	// Hover moves the mouse over the first element matching loc.
	Hover(ctx context.Context, loc Locator) error

	// Wheel scrolls vertically by deltaY pixels at the current mouse
	// position.
	Wheel(ctx context.Context, deltaY float64) error

	// Count returns how many elements currently match loc.
	Count(ctx context.Context, loc Locator) (int, error)

	// Elements returns handles for every element currently matching loc.
	Elements(ctx context.Context, loc Locator) ([]Element, error)

	// HTML returns the full rendered markup of the page.
	HTML(ctx context.Context) (string, error)

	Close() error
}

// Element is a handle to a node on a Page.
type Element interface {
	// Href returns the element's href attribute, or "".
	Href() string

	// Click activates the element.
	Click(ctx context.Context) error
}

// Kind says how a Locator query is interpreted.
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
)

func (k Kind) String() string {
	if k == KindXPath {
		return "xpath"
	}
	return "css"
}

// Locator finds elements on a page or in a markup snapshot.
type Locator struct {
	Query string
	Kind  Kind
}

// CSS returns a CSS selector locator.
func CSS(q string) Locator { return Locator{Query: q, Kind: KindCSS} }

// XPath returns an XPath locator.
func XPath(q string) Locator { return Locator{Query: q, Kind: KindXPath} }

// ParseLocator infers the locator kind from the query text. Queries that
// start with "/" or "(" are XPath, anything else is CSS.
func ParseLocator(s string) Locator {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return XPath(s)
	}
	return CSS(s)
}

func (l Locator) String() string {
	return l.Kind.String() + ":" + l.Query
}

// IsZero reports whether l has no query.
func (l Locator) IsZero() bool {
	return l.Query == ""
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, browser.ErrNoNode).
var (
	// ErrNoNode indicates no element matched a locator.
	ErrNoNode = errors.New("no matching node")
	// ErrClosed indicates the page or session was already closed.
	ErrClosed = errors.New("browser closed")
)
