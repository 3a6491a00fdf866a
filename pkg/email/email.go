// Package email mines an email address from a business website.
//
// Discovery is best effort: every Finder returns an empty string on any
// failure and never reports an error to its caller.
package email

import (
	"context"
	"regexp"

	"github.com/jmylchreest/mapleads/internal/logger"
)

// Pattern matches email addresses in raw markup.
var Pattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// FirstMatch returns the first email address in markup, or "".
func FirstMatch(markup string) string {
	return Pattern.FindString(markup)
}

// Finder looks up an email address for a website.
type Finder interface {
	// Find returns the first email address found at url, or "" on any
	// failure.
	Find(ctx context.Context, url string) string
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(ctx context.Context, url string) string

// Find implements Finder.
func (f FinderFunc) Find(ctx context.Context, url string) string {
	return f(ctx, url)
}

// Off is a Finder that never looks anything up.
var Off Finder = FinderFunc(func(context.Context, string) string { return "" })

type fetchFunc func(ctx context.Context, url string) (string, error)

// discover scans target and, when follow is set and the homepage has no
// address, the first contact-like pages it links to.
func discover(ctx context.Context, fetch fetchFunc, target string, follow bool, maxFollow int) string {
	markup, err := fetch(ctx, target)
	if err != nil {
		logger.Debug("email lookup failed", "url", target, "error", err)
		return ""
	}
	if addr := FirstMatch(markup); addr != "" || !follow {
		return addr
	}

	links := ContactLinks(markup, target)
	if len(links) > maxFollow {
		links = links[:maxFollow]
	}
	for _, link := range links {
		if ctx.Err() != nil {
			return ""
		}
		markup, err := fetch(ctx, link)
		if err != nil {
			logger.Debug("email contact page failed", "url", link, "error", err)
			continue
		}
		if addr := FirstMatch(markup); addr != "" {
			logger.Debug("email found on contact page", "url", link)
			return addr
		}
	}
	return ""
}
