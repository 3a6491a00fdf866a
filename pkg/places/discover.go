package places

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/pacing"
)

// ErrNoListings is returned when discovery finds no listing at all.
var ErrNoListings = errors.New("no listings found")

// Discovery defaults.
const (
	DefaultMaxScrolls  = 50
	DefaultScrollDelta = 8000
)

// Pacing intervals used while searching and scrolling.
var (
	TypingInterval = pacing.Seconds(0.8, 1.2)
	SettleInterval = pacing.Fixed(4 * time.Second)
	ScrollInterval = pacing.Seconds(1.6, 2.4)
)

// Listing is one result entry found in the feed.
type Listing struct {
	// Index is the 0-based position in discovery order.
	Index   int
	Href    string
	Element browser.Element
}

// Ordinal returns the 1-based position used in logs.
func (l Listing) Ordinal() int { return l.Index + 1 }

// Discoverer submits a search and grows the result feed until enough
// listings are loaded or loading stalls.
type Discoverer struct {
	Selectors   Selectors
	Pacer       pacing.Pacer
	SearchURL   string
	MaxScrolls  int
	ScrollDelta float64
}

// NewDiscoverer creates a Discoverer with default settings.
func NewDiscoverer(sel Selectors, p pacing.Pacer) *Discoverer {
	return &Discoverer{
		Selectors:   sel,
		Pacer:       p,
		SearchURL:   SearchURL,
		MaxScrolls:  DefaultMaxScrolls,
		ScrollDelta: DefaultScrollDelta,
	}
}

// Discover runs query on page and returns at most total listings in feed
// order. Listings sharing a link are reported once. It returns
// ErrNoListings when the feed is empty.
func (d *Discoverer) Discover(ctx context.Context, page browser.Page, query string, total int) ([]Listing, error) {
	log := logger.With("query", query, "total", total)

	if err := d.search(ctx, page, query); err != nil {
		return nil, err
	}

	if err := page.Hover(ctx, d.Selectors.Listing); err != nil {
		log.Debug("hover over first listing failed", "error", err)
	}

	count, scrolls, err := d.scroll(ctx, page, total)
	if err != nil {
		return nil, err
	}
	log.Debug("feed scrolling finished", "count", count, "scrolls", scrolls)

	elems, err := page.Elements(ctx, d.Selectors.Listing)
	if err != nil {
		return nil, fmt.Errorf("failed to collect listings: %w", err)
	}
	listings := collect(elems, total)
	if len(listings) == 0 {
		return nil, ErrNoListings
	}

	log.Info("listings discovered", "found", len(listings))
	return listings, nil
}

func (d *Discoverer) search(ctx context.Context, page browser.Page, query string) error {
	searchURL := d.SearchURL
	if searchURL == "" {
		searchURL = SearchURL
	}
	if err := page.Navigate(ctx, searchURL); err != nil {
		return fmt.Errorf("failed to open search page: %w", err)
	}
	d.dismissConsent(ctx, page)

	if err := page.Fill(ctx, d.Selectors.SearchInput, query); err != nil {
		return fmt.Errorf("failed to enter query: %w", err)
	}
	if err := d.Pacer.Wait(ctx, TypingInterval); err != nil {
		return err
	}
	if err := page.PressEnter(ctx); err != nil {
		return fmt.Errorf("failed to submit query: %w", err)
	}
	return d.Pacer.Wait(ctx, SettleInterval)
}

// dismissConsent accepts the cookie interstitial shown to some regions.
func (d *Discoverer) dismissConsent(ctx context.Context, page browser.Page) {
	if d.Selectors.Consent.IsZero() {
		return
	}
	buttons, err := page.Elements(ctx, d.Selectors.Consent)
	if err != nil || len(buttons) == 0 {
		return
	}
	logger.Debug("accepting consent interstitial")
	if err := buttons[0].Click(ctx); err != nil {
		logger.Debug("consent click failed", "error", err)
		return
	}
	if err := page.WaitLoaded(ctx); err != nil {
		logger.Debug("consent reload wait failed", "error", err)
	}
}

// scroll grows the feed. It stops when total anchors are loaded, when a
// scroll adds nothing, or after MaxScrolls attempts. A total of zero or
// less only stops on a stall or the cap.
func (d *Discoverer) scroll(ctx context.Context, page browser.Page, total int) (count, scrolls int, err error) {
	maxScrolls := d.MaxScrolls
	if maxScrolls <= 0 {
		maxScrolls = DefaultMaxScrolls
	}
	delta := d.ScrollDelta
	if delta == 0 {
		delta = DefaultScrollDelta
	}

	previous := 0
	for scrolls < maxScrolls {
		if err := ctx.Err(); err != nil {
			return count, scrolls, err
		}
		scrolls++

		if err := page.Wheel(ctx, delta); err != nil {
			logger.Debug("feed scroll failed", "scroll", scrolls, "error", err)
		}
		if err := d.Pacer.Wait(ctx, ScrollInterval); err != nil {
			return count, scrolls, err
		}

		count, err = page.Count(ctx, d.Selectors.Listing)
		if err != nil {
			return count, scrolls, fmt.Errorf("failed to count listings: %w", err)
		}
		logger.Debug("feed scrolled", "scroll", scrolls, "count", count)

		if (total > 0 && count >= total) || count == previous {
			break
		}
		previous = count
	}
	return count, scrolls, nil
}

// collect turns anchors into listings, dropping anchors whose link was
// already seen, and truncates to total.
func collect(elems []browser.Element, total int) []Listing {
	var listings []Listing
	seen := make(map[string]bool)

	for _, el := range elems {
		if total > 0 && len(listings) >= total {
			break
		}
		href := el.Href()
		if key := normalizeHref(href); key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		listings = append(listings, Listing{Index: len(listings), Href: href, Element: el})
	}
	return listings
}

// normalizeHref strips the query string and fragment, which Maps uses for
// per-session tracking, and any trailing slash.
func normalizeHref(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
