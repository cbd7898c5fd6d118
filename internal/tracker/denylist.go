package tracker

import (
	"net/url"
	"regexp"
)

// Denylist holds compiled capture exclusions: exact hostname matches and
// regex patterns applied to the hostname. A nil Denylist matches nothing.
type Denylist struct {
	domains []string
	regexes []*regexp.Regexp
}

// NewDenylist compiles the given rules. Invalid regex patterns are skipped.
func NewDenylist(domains, patterns []string) *Denylist {
	d := &Denylist{domains: domains}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue // skip invalid regex
		}
		d.regexes = append(d.regexes, re)
	}
	return d
}

// Match reports whether the URL's hostname is denylisted.
func (d *Denylist) Match(rawURL string) bool {
	if d == nil {
		return false
	}

	host := hostname(rawURL)
	if host == "" {
		return false
	}

	for _, dom := range d.domains {
		if dom == host {
			return true
		}
	}
	for _, re := range d.regexes {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// hostname pulls the host out of a URL string.
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
