package mapleads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/business"
	"github.com/jmylchreest/mapleads/pkg/email"
	"github.com/jmylchreest/mapleads/pkg/pacing"
	"github.com/jmylchreest/mapleads/pkg/places"
	"github.com/jmylchreest/mapleads/pkg/query"
)

// Exported error types.
var (
	// ErrNoListings is returned when the search yields no listing at all.
	// Re-exported from pkg/places.
	ErrNoListings = places.ErrNoListings
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is required")
)

// ListingInterval is waited after each listing.
var ListingInterval = pacing.Seconds(0.6, 1.2)

// Request describes one scrape.
type Request struct {
	Query string
	// Total is the number of listings to collect. Zero or less means as
	// many as the feed yields.
	Total int
}

// Result is the outcome of a completed scrape.
type Result struct {
	Query      query.Query
	Records    []business.Record
	Found      int // listings discovered
	Failed     int // listings that could not be extracted
	Duplicates int // listings rejected as already seen
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Scraper runs searches in one browser session. A Scraper must not run
// several requests at the same time since they share the main page.
type Scraper struct {
	session    browser.Session
	discoverer *places.Discoverer
	extractor  *places.Extractor
	pacer      pacing.Pacer
	config     Config
}

// New creates a Scraper that drives session.
func New(session browser.Session, opts ...Option) (*Scraper, error) {
	if session == nil {
		return nil, errors.New("browser session is required")
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := cfg.Pacer
	if p == nil {
		p = pacing.New()
	}
	finder := cfg.EmailFinder
	if finder == nil {
		finder = email.NewBrowserFinder(session, p)
	}

	d := places.NewDiscoverer(cfg.Selectors, p)
	if cfg.SearchURL != "" {
		d.SearchURL = cfg.SearchURL
	}
	if cfg.MaxScrolls > 0 {
		d.MaxScrolls = cfg.MaxScrolls
	}

	return &Scraper{
		session:    session,
		discoverer: d,
		extractor:  places.NewExtractor(cfg.Selectors, p, finder),
		pacer:      p,
		config:     cfg,
	}, nil
}

// Run searches for req.Query and returns the deduplicated records in
// discovery order. A listing that fails is logged and skipped; only
// discovery failures and cancellation abort the run.
func (s *Scraper) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	res := &Result{
		Query:     query.Parse(req.Query),
		StartedAt: time.Now(),
	}
	log := logger.With("query", req.Query)

	listings, err := s.discoverer.Discover(ctx, s.session.MainPage(), req.Query, req.Total)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	res.Found = len(listings)

	set := business.NewResultSet()
	if s.config.Concurrency > 1 {
		err = s.extractParallel(ctx, listings, res, set)
	} else {
		err = s.extractSequential(ctx, listings, res, set)
	}
	set.Freeze()
	if err != nil {
		return nil, err
	}

	res.Records = set.Records()
	res.FinishedAt = time.Now()
	log.Info("run complete",
		"found", res.Found,
		"records", len(res.Records),
		"failed", res.Failed,
		"duplicates", res.Duplicates,
		"duration", res.Duration().Round(time.Millisecond))
	return res, nil
}

func (s *Scraper) extractSequential(ctx context.Context, listings []places.Listing, res *Result, set *business.ResultSet) error {
	page := s.session.MainPage()
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, err := s.extractor.Extract(ctx, page, l, res.Query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			logger.Warn("listing failed", "index", l.Ordinal(), "error", err)
		} else {
			s.add(set, res, l, r)
		}

		if err := s.pacer.Wait(ctx, ListingInterval); err != nil {
			return err
		}
	}
	return nil
}

// extractParallel opens each listing in its own page. Candidates are
// buffered by listing index and added to set in discovery order once every
// worker is done.
func (s *Scraper) extractParallel(ctx context.Context, listings []places.Listing, res *Result, set *business.ResultSet) error {
	candidates := make([]*business.Record, len(listings))
	var failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, l := range listings {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := s.extractInPage(ctx, l, res.Query)
			switch {
			case err == nil:
				candidates[i] = &r
			case ctx.Err() == nil:
				failed.Add(1)
				logger.Warn("listing failed", "index", l.Ordinal(), "error", err)
			}
			_ = s.pacer.Wait(ctx, ListingInterval)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	res.Failed = int(failed.Load())
	for i, r := range candidates {
		if r != nil {
			s.add(set, res, listings[i], *r)
		}
	}
	return nil
}

func (s *Scraper) extractInPage(ctx context.Context, l places.Listing, q query.Query) (business.Record, error) {
	page, err := s.session.NewPage(ctx)
	if err != nil {
		return business.Record{}, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	return s.extractor.Extract(ctx, page, places.Listing{Index: l.Index, Href: l.Href}, q)
}

func (s *Scraper) add(set *business.ResultSet, res *Result, l places.Listing, r business.Record) {
	if set.Add(r) {
		logger.Debug("listing extracted", "index", l.Ordinal(), "name", r.Name)
		return
	}
	res.Duplicates++
	logger.Debug("duplicate listing skipped", "index", l.Ordinal(), "key", r.Key().String())
}
