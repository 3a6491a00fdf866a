// Package fields extracts text fields from a snapshot of rendered markup.
//
// Lookups accept CSS or XPath locators. Extraction through First never
// fails: a missing element, an empty element or an invalid locator all
// yield an empty result, so one absent field cannot abort a record.
package fields

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/mapleads/pkg/browser"
)

// Source resolves a locator to text.
type Source interface {
	Text(loc browser.Locator) (string, error)
}

// Document is a parsed markup snapshot.
type Document struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse parses markup into a Document.
func Parse(markup string) (*Document, error) {
	root, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Text returns the trimmed text of the first element matching loc.
// It returns browser.ErrNoNode when nothing matches.
func (d *Document) Text(loc browser.Locator) (string, error) {
	switch loc.Kind {
	case browser.KindXPath:
		node, err := htmlquery.Query(d.root, loc.Query)
		if err != nil {
			return "", fmt.Errorf("invalid xpath %q: %w", loc.Query, err)
		}
		if node == nil {
			return "", fmt.Errorf("%s: %w", loc, browser.ErrNoNode)
		}
		return cleanText(htmlquery.InnerText(node)), nil
	default:
		sel := d.doc.Find(loc.Query)
		if sel.Length() == 0 {
			return "", fmt.Errorf("%s: %w", loc, browser.ErrNoNode)
		}
		return cleanText(sel.First().Text()), nil
	}
}

// Attr returns the named attribute of the first element matching loc.
func (d *Document) Attr(loc browser.Locator, name string) (string, bool) {
	switch loc.Kind {
	case browser.KindXPath:
		node, err := htmlquery.Query(d.root, loc.Query)
		if err != nil || node == nil {
			return "", false
		}
		for _, a := range node.Attr {
			if a.Key == name {
				return a.Val, true
			}
		}
		return "", false
	default:
		return d.doc.Find(loc.Query).First().Attr(name)
	}
}

// Selection exposes the goquery view of the snapshot.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// First tries each locator in order and returns the first non-empty text.
// It reports false when no locator produced text.
func First(src Source, locs ...browser.Locator) (string, bool) {
	for _, loc := range locs {
		if loc.IsZero() {
			continue
		}
		text, err := src.Text(loc)
		if err != nil || text == "" {
			continue
		}
		return text, true
	}
	return "", false
}

// cleanText normalizes whitespace in text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
