package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/business"
	"github.com/jmylchreest/mapleads/pkg/email"
	"github.com/jmylchreest/mapleads/pkg/fields"
	"github.com/jmylchreest/mapleads/pkg/pacing"
	"github.com/jmylchreest/mapleads/pkg/query"
)

// DetailInterval is waited after activating a listing so its detail view
// can render.
var DetailInterval = pacing.Seconds(1.7, 2.7)

// Extractor builds a business record from a listing's detail view.
type Extractor struct {
	Selectors Selectors
	Pacer     pacing.Pacer
	// Email looks up an address for listings with a website. Nil
	// disables the lookup.
	Email email.Finder
}

// NewExtractor creates an Extractor.
func NewExtractor(sel Selectors, p pacing.Pacer, f email.Finder) *Extractor {
	return &Extractor{Selectors: sel, Pacer: p, Email: f}
}

// Extract opens l on page and reads its fields. A listing with an element
// handle is clicked in place; one without is opened by navigating page to
// its link. Missing fields are left empty and never cause an error.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, l Listing, q query.Query) (business.Record, error) {
	if err := e.activate(ctx, page, l); err != nil {
		return business.Record{}, err
	}
	if err := e.Pacer.Wait(ctx, DetailInterval); err != nil {
		return business.Record{}, err
	}

	markup, err := page.HTML(ctx)
	if err != nil {
		return business.Record{}, fmt.Errorf("failed to read detail view: %w", err)
	}
	doc, err := fields.Parse(markup)
	if err != nil {
		return business.Record{}, err
	}

	r := e.Read(doc)
	if r.Website != "" && e.Email != nil {
		r.Email = e.Email.Find(ctx, r.Website)
	}
	r.Category = q.Category
	r.Location = q.Location
	return r, nil
}

// Read fills the detail-view fields of a record from src.
func (e *Extractor) Read(src fields.Source) business.Record {
	var r business.Record
	r.Name, _ = fields.First(src, e.Selectors.Name...)
	r.Address, _ = fields.First(src, e.Selectors.Address)
	r.PhoneNumber, _ = fields.First(src, e.Selectors.Phone)
	if site, ok := fields.First(src, e.Selectors.Website); ok {
		r.Domain = site
		r.Website = business.NormalizeWebsite(site)
	}
	return r
}

func (e *Extractor) activate(ctx context.Context, page browser.Page, l Listing) error {
	if l.Element != nil {
		if err := l.Element.Click(ctx); err != nil {
			return fmt.Errorf("failed to open listing: %w", err)
		}
		return nil
	}
	if l.Href == "" {
		return errors.New("listing has neither element nor link")
	}
	if err := page.Navigate(ctx, l.Href); err != nil {
		return fmt.Errorf("failed to open listing %s: %w", l.Href, err)
	}
	return page.WaitLoaded(ctx)
}
