package mapleads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/email"
	"github.com/jmylchreest/mapleads/pkg/pacing"
	"github.com/jmylchreest/mapleads/pkg/places"
)

// --- fakes ---

// placeHTML renders a minimal detail view.
func placeHTML(name, website string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1 class="DUwDvf">%s</h1>`, name)
	if website != "" {
		fmt.Fprintf(&b, `<a data-item-id="authority"><div class="fontBodyMedium">%s</div></a>`, website)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

type fakeSession struct {
	mu      sync.Mutex
	main    *fakePage
	details map[string]string // href -> detail markup
	delay   func(href string) time.Duration
	opened  int
	closed  int
}

func newFakeSession(hrefs []string, details map[string]string) *fakeSession {
	s := &fakeSession{details: details}
	s.main = &fakePage{session: s}
	for _, h := range hrefs {
		s.main.listings = append(s.main.listings, &fakeElement{href: h, page: s.main})
	}
	return s
}

func (s *fakeSession) MainPage() browser.Page { return s.main }

func (s *fakeSession) NewPage(context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return &fakePage{session: s}, nil
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) detail(href string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	html, ok := s.details[href]
	return html, ok
}

type fakeElement struct {
	href     string
	page     *fakePage
	clickErr error
}

func (e *fakeElement) Href() string { return e.href }

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.page.current = e.href
	return nil
}

type fakePage struct {
	session  *fakeSession
	listings []browser.Element
	current  string
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.current = url
	if p.session.delay != nil {
		time.Sleep(p.session.delay(url))
	}
	return nil
}

func (p *fakePage) WaitLoaded(context.Context) error                    { return nil }
func (p *fakePage) Fill(context.Context, browser.Locator, string) error { return nil }
func (p *fakePage) PressEnter(context.Context) error                    { return nil }
func (p *fakePage) Hover(context.Context, browser.Locator) error        { return nil }
func (p *fakePage) Wheel(context.Context, float64) error                { return nil }
func (p *fakePage) Count(context.Context, browser.Locator) (int, error) { return len(p.listings), nil }

func (p *fakePage) Elements(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	if loc.Kind == browser.KindXPath && strings.Contains(loc.Query, "consent") {
		return nil, nil
	}
	return p.listings, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	html, ok := p.session.detail(p.current)
	if !ok {
		return "", fmt.Errorf("no detail view for %q", p.current)
	}
	return html, nil
}

func (p *fakePage) Close() error {
	p.session.mu.Lock()
	p.session.closed++
	p.session.mu.Unlock()
	return nil
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

// extractionWaits returns the waits recorded after the last feed scroll.
func (r *recordingPacer) extractionWaits() []pacing.Interval {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := -1
	for i, iv := range r.intervals {
		if iv == places.ScrollInterval {
			last = i
		}
	}
	return append([]pacing.Interval(nil), r.intervals[last+1:]...)
}

func href(i int) string {
	return fmt.Sprintf("https://www.google.com/maps/place/biz-%d/data=!%d", i, i)
}

func names(t *testing.T, res *Result) []string {
	t.Helper()
	var out []string
	for _, r := range res.Records {
		out = append(out, r.Name)
	}
	return out
}

// --- tests ---

func TestNew_RequiresSession(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil session")
	}
}

func TestRun_EmptyQuery(t *testing.T) {
	s, _ := New(newFakeSession(nil, nil), WithPacer(pacing.None()))

	if _, err := s.Run(context.Background(), Request{Query: "  ", Total: 10}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestRun_SequentialDeduplicates(t *testing.T) {
	hrefs := []string{href(0), href(1), href(2)}
	sess := newFakeSession(hrefs, map[string]string{
		hrefs[0]: placeHTML("Acme", "acme.com"),
		hrefs[1]: placeHTML("Beta", ""),
		hrefs[2]: placeHTML("Acme", "acme.com"),
	})
	s, err := New(sess, WithPacer(pacing.None()), WithEmailFinder(email.Off))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := s.Run(context.Background(), Request{Query: "plumbers in Leeds", Total: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := names(t, res); strings.Join(got, ",") != "Acme,Beta" {
		t.Errorf("expected [Acme Beta], got %v", got)
	}
	if res.Found != 3 || res.Duplicates != 1 || res.Failed != 0 {
		t.Errorf("expected found=3 duplicates=1 failed=0, got %d/%d/%d", res.Found, res.Duplicates, res.Failed)
	}
	for _, r := range res.Records {
		if r.Category != "plumbers" || r.Location != "Leeds" {
			t.Errorf("expected query stamped on %q, got %q/%q", r.Name, r.Category, r.Location)
		}
	}
	if res.Records[0].Website != "https://www.acme.com" {
		t.Errorf("expected normalized website, got %q", res.Records[0].Website)
	}
}

func TestRun_ListingFailureIsolated(t *testing.T) {
	hrefs := []string{href(0), href(1), href(2)}
	sess := newFakeSession(hrefs, map[string]string{
		hrefs[0]: placeHTML("Acme", ""),
		hrefs[1]: placeHTML("Beta", ""),
		hrefs[2]: placeHTML("Gamma", ""),
	})
	sess.main.listings[1].(*fakeElement).clickErr = errors.New("element detached")
	s, _ := New(sess, WithPacer(pacing.None()), WithEmailFinder(email.Off))

	res, err := s.Run(context.Background(), Request{Query: "cafes", Total: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := names(t, res); strings.Join(got, ",") != "Acme,Gamma" {
		t.Errorf("expected [Acme Gamma], got %v", got)
	}
	if res.Failed != 1 {
		t.Errorf("expected 1 failed listing, got %d", res.Failed)
	}
}

func TestRun_PacesAfterEveryListing(t *testing.T) {
	hrefs := []string{href(0), href(1), href(2)}
	sess := newFakeSession(hrefs, map[string]string{
		hrefs[0]: placeHTML("Acme", ""),
		hrefs[1]: placeHTML("Beta", ""),
		hrefs[2]: placeHTML("Gamma", ""),
	})
	sess.main.listings[1].(*fakeElement).clickErr = errors.New("element detached")
	p := &recordingPacer{}
	s, _ := New(sess, WithPacer(p), WithEmailFinder(email.Off))

	if _, err := s.Run(context.Background(), Request{Query: "cafes", Total: 10}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []pacing.Interval{
		places.DetailInterval, ListingInterval,
		ListingInterval,
		places.DetailInterval, ListingInterval,
	}
	got := p.extractionWaits()
	if len(got) != len(want) {
		t.Fatalf("expected %d waits after discovery, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("wait %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRun_ParallelPacesAfterEveryListing(t *testing.T) {
	const n = 6
	hrefs := make([]string, n)
	details := make(map[string]string, n)
	for i := range hrefs {
		hrefs[i] = href(i)
		details[hrefs[i]] = placeHTML(fmt.Sprintf("biz-%d", i), "")
	}
	delete(details, hrefs[2])
	sess := newFakeSession(hrefs, details)
	p := &recordingPacer{}
	s, _ := New(sess, WithPacer(p), WithEmailFinder(email.Off), WithConcurrency(3))

	res, err := s.Run(context.Background(), Request{Query: "cafes", Total: n})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected 1 failed listing, got %d", res.Failed)
	}

	listingWaits := 0
	for _, iv := range p.extractionWaits() {
		if iv == ListingInterval {
			listingWaits++
		}
	}
	if listingWaits != n {
		t.Errorf("expected %d listing waits including the failed one, got %d", n, listingWaits)
	}
}

func TestRun_NoListings(t *testing.T) {
	s, _ := New(newFakeSession(nil, nil), WithPacer(pacing.None()))

	res, err := s.Run(context.Background(), Request{Query: "unicorns in Atlantis", Total: 10})
	if !errors.Is(err, ErrNoListings) {
		t.Fatalf("expected ErrNoListings, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
}

func TestRun_EmailLookup(t *testing.T) {
	hrefs := []string{href(0), href(1)}
	sess := newFakeSession(hrefs, map[string]string{
		hrefs[0]: placeHTML("Acme", "acme.com"),
		hrefs[1]: placeHTML("Beta", ""),
	})
	var mu sync.Mutex
	var looked []string
	finder := email.FinderFunc(func(_ context.Context, url string) string {
		mu.Lock()
		looked = append(looked, url)
		mu.Unlock()
		return "sales@acme.com"
	})
	s, _ := New(sess, WithPacer(pacing.None()), WithEmailFinder(finder))

	res, err := s.Run(context.Background(), Request{Query: "cafes", Total: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Records[0].Email != "sales@acme.com" || res.Records[1].Email != "" {
		t.Errorf("unexpected emails %q/%q", res.Records[0].Email, res.Records[1].Email)
	}
	if len(looked) != 1 || looked[0] != "https://www.acme.com" {
		t.Errorf("expected a single lookup of https://www.acme.com, got %v", looked)
	}
}

func TestRun_ParallelPreservesOrder(t *testing.T) {
	const n = 12
	hrefs := make([]string, n)
	details := make(map[string]string, n)
	for i := range hrefs {
		hrefs[i] = href(i)
		details[hrefs[i]] = placeHTML(fmt.Sprintf("biz-%02d", i), "")
	}
	delete(details, hrefs[5])

	sess := newFakeSession(hrefs, details)
	sess.delay = func(h string) time.Duration {
		var i int
		fmt.Sscanf(h[strings.LastIndex(h, "!")+1:], "%d", &i)
		return time.Duration(n-i) * time.Millisecond
	}
	s, _ := New(sess, WithPacer(pacing.None()), WithEmailFinder(email.Off), WithConcurrency(4))

	res, err := s.Run(context.Background(), Request{Query: "cafes", Total: n})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Records) != n-1 {
		t.Fatalf("expected %d records, got %d", n-1, len(res.Records))
	}
	prev := ""
	for _, r := range res.Records {
		if r.Name <= prev {
			t.Fatalf("expected discovery order, got %v", names(t, res))
		}
		prev = r.Name
	}
	if res.Failed != 1 {
		t.Errorf("expected 1 failed listing, got %d", res.Failed)
	}
	if sess.opened != n || sess.closed != n {
		t.Errorf("expected %d pages opened and closed, got opened=%d closed=%d", n, sess.opened, sess.closed)
	}
}

func TestRun_Cancelled(t *testing.T) {
	hrefs := []string{href(0)}
	sess := newFakeSession(hrefs, map[string]string{hrefs[0]: placeHTML("Acme", "")})
	s, _ := New(sess, WithPacer(pacing.None()), WithEmailFinder(email.Off))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Run(ctx, Request{Query: "cafes", Total: 10}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithSelectors_KeepsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	WithSelectors(places.Selectors{Name: []browser.Locator{browser.CSS("h2")}})(&cfg)

	if len(cfg.Selectors.Name) != 1 || cfg.Selectors.Name[0].Query != "h2" {
		t.Errorf("expected overridden name chain, got %v", cfg.Selectors.Name)
	}
	if cfg.Selectors.Listing.IsZero() {
		t.Error("expected default listing selector kept")
	}
}
