package business

import "strings"

// IdentityKey decides whether two records describe the same business.
// It is comparable and used directly as a map key.
type IdentityKey struct {
	Name    string
	Domain  string
	Website string
	Phone   string
}

// Key returns the identity key of r.
func (r Record) Key() IdentityKey {
	return IdentityKey{
		Name:    r.Name,
		Domain:  r.Domain,
		Website: r.Website,
		Phone:   r.PhoneNumber,
	}
}

// Parts returns the key as an ordered tuple: the name (possibly empty)
// followed by a tagged value for each non-empty identifier, in the order
// domain, website, phone.
func (k IdentityKey) Parts() []string {
	parts := []string{k.Name}
	if k.Domain != "" {
		parts = append(parts, "domain:"+k.Domain)
	}
	if k.Website != "" {
		parts = append(parts, "website:"+k.Website)
	}
	if k.Phone != "" {
		parts = append(parts, "phone:"+k.Phone)
	}
	return parts
}

// String joins the tuple for logs and storage.
func (k IdentityKey) String() string {
	return strings.Join(k.Parts(), "|")
}
