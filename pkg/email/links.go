package email

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contactPattern matches link targets or labels that usually lead to a
// page listing contact details.
var contactPattern = regexp.MustCompile(`(?i)contact|about|impressum|kontakt|contatti|contacto`)

// ContactLinks returns same-site links from markup whose href or text looks
// like a contact or about page, resolved against baseURL, in document order
// and without duplicates.
func ContactLinks(markup, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := map[string]bool{normalizeURL(base): true}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		if !contactPattern.MatchString(href) && !contactPattern.MatchString(s.Text()) {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() {
			linkURL = base.ResolveReference(linkURL)
		}
		if !sameSite(base, linkURL) {
			return
		}

		key := normalizeURL(linkURL)
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, linkURL.String())
	})

	return links
}

// sameSite compares hosts ignoring a leading "www.".
func sameSite(a, b *url.URL) bool {
	return strings.TrimPrefix(strings.ToLower(a.Hostname()), "www.") ==
		strings.TrimPrefix(strings.ToLower(b.Hostname()), "www.")
}

func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	if len(c.Path) > 1 && strings.HasSuffix(c.Path, "/") {
		c.Path = strings.TrimSuffix(c.Path, "/")
	}
	if c.Path == "/" {
		c.Path = ""
	}
	return c.String()
}
