package cookiejar

import (
	"net/url"
	"strings"
)

// selectCookieFactory builds the predicate that decides whether a stored
// cookie applies to an outgoing request against reqURL. hostDomain is the
// hostname the jar is currently being queried for (equal to reqURL.Hostname()
// except when a caller explicitly overrides it, e.g. during redirect
// re-resolution).
func selectCookieFactory(reqURL *url.URL, hostDomain string) func(Cookie) bool {
	reqHTTPS := reqURL.Scheme == "https"
	reqHost := reqURL.Hostname()
	reqPath := reqURL.Path
	if reqPath == "" {
		reqPath = "/"
	}

	return func(c Cookie) bool {
		if c.Secure && !reqHTTPS {
			return false
		}
		if !pathMatches(reqPath, c.Path) {
			return false
		}

		switch c.SameSite {
		case SameSiteStrict:
			if !matchDomain(hostDomain, c.Domain) || !matchDomain(reqHost, c.Domain) {
				return false
			}
		case SameSiteNone:
			if !matchDomain(hostDomain, c.Domain) {
				return false
			}
		default: // Lax
			if !matchDomain(reqHost, c.Domain) {
				return false
			}
		}

		return true
	}
}

// pathMatches reports whether requestPath starts with cookiePath.
func pathMatches(requestPath, cookiePath string) bool {
	return strings.HasPrefix(requestPath, cookiePath)
}
