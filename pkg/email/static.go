package email

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/mapleads/internal/logger"
)

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFinder fetches the website over plain HTTP with colly. It does not
// run scripts, so addresses injected client-side are missed.
type StaticFinder struct {
	UserAgent     string
	Timeout       time.Duration
	FollowContact bool
	MaxFollow     int
}

// NewStaticFinder creates a StaticFinder with default settings.
func NewStaticFinder() *StaticFinder {
	return &StaticFinder{
		UserAgent: defaultUserAgent,
		Timeout:   DefaultNavigateTimeout,
		MaxFollow: 1,
	}
}

// Find implements Finder.
func (f *StaticFinder) Find(ctx context.Context, url string) string {
	return discover(ctx, f.fetch, url, f.FollowContact, max(f.MaxFollow, 1))
}

func (f *StaticFinder) fetch(ctx context.Context, targetURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	c := colly.NewCollector(colly.UserAgent(ua), colly.StdlibContext(ctx))
	c.SetRequestTimeout(orDefault(f.Timeout, DefaultNavigateTimeout))

	var (
		body     string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
		logger.Debug("email static response", "url", targetURL, "status", r.StatusCode, "body_size", len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch error (status %d): %w", status, err)
	})

	if err := c.Visit(targetURL); err != nil {
		return "", fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return "", fetchErr
	}
	return body, nil
}
