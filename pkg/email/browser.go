package email

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/pacing"
)

// Default bounds for a browser lookup.
const (
	DefaultNavigateTimeout = 20 * time.Second
	DefaultLoadTimeout     = 10 * time.Second
	DefaultReadTimeout     = 15 * time.Second
)

// SettleInterval is waited after the page loads and before its markup is
// read.
var SettleInterval = pacing.Seconds(1.5, 2.5)

// BrowserFinder renders the website in a fresh page of an existing browser
// session and scans the rendered markup.
type BrowserFinder struct {
	Session browser.Session
	Pacer   pacing.Pacer

	NavigateTimeout time.Duration
	LoadTimeout     time.Duration
	ReadTimeout     time.Duration

	// FollowContact scans linked contact pages when the homepage has no
	// address.
	FollowContact bool
	MaxFollow     int
}

// NewBrowserFinder creates a BrowserFinder with default timeouts.
func NewBrowserFinder(s browser.Session, p pacing.Pacer) *BrowserFinder {
	return &BrowserFinder{
		Session:         s,
		Pacer:           p,
		NavigateTimeout: DefaultNavigateTimeout,
		LoadTimeout:     DefaultLoadTimeout,
		ReadTimeout:     DefaultReadTimeout,
		MaxFollow:       1,
	}
}

// Find implements Finder.
func (f *BrowserFinder) Find(ctx context.Context, url string) string {
	return discover(ctx, f.fetch, url, f.FollowContact, max(f.MaxFollow, 1))
}

// fetch opens a page, loads url and returns its markup. The page is closed
// on every path.
func (f *BrowserFinder) fetch(ctx context.Context, url string) (string, error) {
	page, err := f.Session.NewPage(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("email page close failed", "url", url, "error", err)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, orDefault(f.NavigateTimeout, DefaultNavigateTimeout))
	err = page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, orDefault(f.LoadTimeout, DefaultLoadTimeout))
	if err := page.WaitLoaded(loadCtx); err != nil {
		logger.Debug("email page load wait ended", "url", url, "error", err)
	}
	cancel()

	if f.Pacer != nil {
		if err := f.Pacer.Wait(ctx, SettleInterval); err != nil {
			return "", err
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, orDefault(f.ReadTimeout, DefaultReadTimeout))
	defer cancel()
	return page.HTML(readCtx)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
