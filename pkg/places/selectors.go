// Package places drives the Google Maps search surface: it discovers
// listings by scrolling the result feed and extracts a business record from
// each listing's detail view.
package places

import "github.com/jmylchreest/mapleads/pkg/browser"

// SearchURL is the default search surface.
const SearchURL = "https://www.google.com/maps"

// Selectors locates the elements the scraper interacts with. Every field
// can be overridden from configuration when the markup changes.
type Selectors struct {
	// Consent is clicked if present after opening the search surface.
	// A zero locator disables the check.
	Consent     browser.Locator
	SearchInput browser.Locator
	Listing     browser.Locator

	// Name is a fallback chain; the first locator yielding text wins.
	Name    []browser.Locator
	Address browser.Locator
	Website browser.Locator
	Phone   browser.Locator
}

// DefaultSelectors returns the selectors for the current Maps markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Consent:     browser.XPath(`//form[contains(@action, "consent.google")]//button[@aria-label="Accept all" or .//span[text()="Accept all"]]`),
		SearchInput: browser.XPath(`//input[@id="searchboxinput"]`),
		Listing:     browser.XPath(`//a[contains(@href, "https://www.google.com/maps/place")]`),
		Name: []browser.Locator{
			browser.CSS("h1.DUwDvf"),
			browser.CSS("h1.fontHeadlineLarge"),
			browser.CSS("h1"),
		},
		Address: browser.XPath(`//button[@data-item-id="address"]//div[contains(@class, "fontBodyMedium")]`),
		Website: browser.XPath(`//a[@data-item-id="authority"]//div[contains(@class, "fontBodyMedium")]`),
		Phone:   browser.XPath(`//button[starts-with(@data-item-id, "phone:tel:")]//div[contains(@class, "fontBodyMedium")]`),
	}
}

// Override returns s with every non-empty value from o applied.
func (s Selectors) Override(o Selectors) Selectors {
	set := func(dst *browser.Locator, src browser.Locator) {
		if !src.IsZero() {
			*dst = src
		}
	}
	set(&s.Consent, o.Consent)
	set(&s.SearchInput, o.SearchInput)
	set(&s.Listing, o.Listing)
	set(&s.Address, o.Address)
	set(&s.Website, o.Website)
	set(&s.Phone, o.Phone)
	if len(o.Name) > 0 {
		s.Name = append([]browser.Locator(nil), o.Name...)
	}
	return s
}
