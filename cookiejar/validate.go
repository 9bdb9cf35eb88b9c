package cookiejar

import (
	"net/url"
	"strings"
)

// ValidateCookie reports whether c is legal to store given the host URL it
// arrived from. It is the pure predicate counterpart to ParseCookie: parsing
// never fails, but a parsed Cookie can still be rejected here.
func ValidateCookie(hostURL *url.URL, c Cookie) bool {
	if c.HasInvalidAttributes {
		return false
	}
	if c.Name == "" || !validToken(c.Name) {
		return false
	}
	if !validCookieValue(c.Value) {
		return false
	}

	if strings.HasPrefix(c.Name, "__Secure-") && (!c.Secure || !c.IsHTTPS) {
		return false
	}
	if strings.HasPrefix(c.Name, "__Host-") {
		if !c.Secure || !c.IsHTTPS || c.Path != "/" || c.AllowSubDomains {
			return false
		}
	}

	host := hostURL.Hostname()
	if !c.AllowSubDomains {
		if c.Domain != host {
			return false
		}
	} else if !matchDomain(host, c.Domain) {
		return false
	}

	if c.Secure && hostURL.Scheme != "https" && host != "localhost" {
		return false
	}
	if c.SameSite == SameSiteNone && !c.Secure {
		return false
	}

	return true
}

// validToken reports whether s is a legal cookie-name token: US-ASCII
// printable characters excluding the RFC 6265 separator set.
func validToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= 0x20 || r >= 0x7f {
			return false
		}
		switch r {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
			return false
		}
	}
	return true
}

// validCookieValue reports whether s is a legal cookie-value: printable
// US-ASCII excluding whitespace, quote, comma, semicolon and backslash. A
// value may be wrapped in a single matching pair of double quotes.
func validCookieValue(s string) bool {
	v := s
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	}
	for _, r := range v {
		if r < 0x21 || r > 0x7e {
			return false
		}
		switch r {
		case '"', ',', ';', '\\':
			return false
		}
	}
	return true
}

// matchDomain reports whether candidate is reference itself or a subdomain
// of it. The relation is not symmetric: matchDomain("a.b.com", "b.com") is
// true, matchDomain("b.com", "a.b.com") is not.
func matchDomain(candidate, reference string) bool {
	if candidate == reference {
		return true
	}
	return strings.HasSuffix(candidate, "."+reference)
}
