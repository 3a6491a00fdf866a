// Package business defines the business listing record produced by a scrape
// and the identity rules used to deduplicate records.
package business

import "strings"

// Record is one business listing. Empty strings mean the field was absent.
type Record struct {
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address" yaml:"address"`
	Domain      string `json:"domain" yaml:"domain"`
	Website     string `json:"website" yaml:"website"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	Email       string `json:"email" yaml:"email"`
	Category    string `json:"category" yaml:"category"`
	Location    string `json:"location" yaml:"location"`
}

// Columns lists the tabular column names in export order.
var Columns = []string{"name", "address", "domain", "website", "phone_number", "email", "category", "location"}

// Row returns the record's values in Columns order.
func (r Record) Row() []string {
	return []string{r.Name, r.Address, r.Domain, r.Website, r.PhoneNumber, r.Email, r.Category, r.Location}
}

// NormalizeWebsite turns the website text shown on a listing into an
// absolute URL. Bare domains get an https://www. prefix; text already
// starting with "http" is returned unchanged. Empty text stays empty.
func NormalizeWebsite(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "http") {
		return text
	}
	return "https://www." + text
}
