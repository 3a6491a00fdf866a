package places

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/pacing"
)

func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return string(data)
}

type fakeElement struct {
	href     string
	clickErr error
	clicks   int
}

func (e *fakeElement) Href() string { return e.href }

func (e *fakeElement) Click(context.Context) error {
	e.clicks++
	return e.clickErr
}

type fakePage struct {
	navErr   error
	fillErr  error
	hoverErr error

	// counts is returned by successive Count calls; the last value
	// repeats. countFn, when set, takes precedence.
	counts  []int
	countFn func(call int) int

	listings []browser.Element
	consent  []browser.Element
	html     string

	navigated  []string
	filled     string
	entered    bool
	hovered    bool
	wheels     int
	countCalls int
	closed     bool
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) WaitLoaded(context.Context) error { return nil }

func (p *fakePage) Fill(_ context.Context, _ browser.Locator, text string) error {
	p.filled = text
	return p.fillErr
}

func (p *fakePage) PressEnter(context.Context) error {
	p.entered = true
	return nil
}

func (p *fakePage) Hover(context.Context, browser.Locator) error {
	p.hovered = true
	return p.hoverErr
}

func (p *fakePage) Wheel(context.Context, float64) error {
	p.wheels++
	return nil
}

func (p *fakePage) Count(context.Context, browser.Locator) (int, error) {
	p.countCalls++
	if p.countFn != nil {
		return p.countFn(p.countCalls), nil
	}
	if len(p.counts) == 0 {
		return len(p.listings), nil
	}
	i := min(p.countCalls, len(p.counts)) - 1
	return p.counts[i], nil
}

func (p *fakePage) Elements(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	if loc == DefaultSelectors().Consent {
		return p.consent, nil
	}
	return p.listings, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	if p.html == "" {
		return "", errors.New("detached")
	}
	return p.html, nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

func elements(hrefs ...string) []browser.Element {
	out := make([]browser.Element, len(hrefs))
	for i, h := range hrefs {
		out[i] = &fakeElement{href: h}
	}
	return out
}

func numbered(n int) []browser.Element {
	hrefs := make([]string, n)
	for i := range hrefs {
		hrefs[i] = fmt.Sprintf("https://www.google.com/maps/place/biz-%d/data=!%d", i, i)
	}
	return elements(hrefs...)
}

// recordingPacer records every interval it is asked to wait for.
type recordingPacer struct {
	mu        sync.Mutex
	intervals []pacing.Interval
}

func (r *recordingPacer) Wait(ctx context.Context, i pacing.Interval) error {
	r.mu.Lock()
	r.intervals = append(r.intervals, i)
	r.mu.Unlock()
	return ctx.Err()
}

type pacerFunc func(ctx context.Context, i pacing.Interval) error

func (f pacerFunc) Wait(ctx context.Context, i pacing.Interval) error { return f(ctx, i) }
