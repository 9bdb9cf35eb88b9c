package cookiejar

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// maxCookieHeaderBytes bounds the serialized Cookie header the jar will
// produce for a single request. A handful of misbehaving servers can hand
// out enough cookies to build a header no real HTTP stack will accept;
// rather than fail the request outright, the jar walks the selected cookies
// in their sorted order (longest path first, then insertion order) and drops
// the first one that would overflow the budget along with every one after
// it. At least one cookie is always kept. When a cookie was set plays no
// part in which ones are dropped.
const maxCookieHeaderBytes = 8 * 1024

type cookieKey struct {
	name    string
	domain  string
	path    string
	isHTTPS bool
}

func keyOf(c Cookie) cookieKey {
	return cookieKey{name: c.Name, domain: c.Domain, path: c.Path, isHTTPS: c.IsHTTPS}
}

// Jar is a concurrency-safe store of Cookie values, indexed by their
// (name, domain, path, isHttps) identity. Adding a cookie whose identity
// matches one already present replaces it in place, preserving insertion
// order for the rest.
type Jar struct {
	mu                sync.RWMutex
	order             []cookieKey
	byKey             map[cookieKey]Cookie
	setAt             map[cookieKey]time.Time
	publicSuffixGuard bool
}

// NewJar returns an empty Jar. When rejectPublicSuffixDomains is true, the
// jar additionally refuses AllowSubDomains cookies whose Domain is a public
// suffix (e.g. "co.uk"), matching the guard net/http's own cookiejar applies
// via the same publicsuffix table.
func NewJar(rejectPublicSuffixDomains bool) *Jar {
	return &Jar{
		byKey:             make(map[cookieKey]Cookie),
		setAt:             make(map[cookieKey]time.Time),
		publicSuffixGuard: rejectPublicSuffixDomains,
	}
}

// AddCookie validates and stores a single cookie, returning false if it was
// rejected.
func (j *Jar) AddCookie(hostURL *url.URL, c Cookie) bool {
	if !ValidateCookie(hostURL, c) {
		return false
	}
	if j.publicSuffixGuard && c.AllowSubDomains && isPublicSuffix(c.Domain) {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	k := keyOf(c)
	if _, exists := j.byKey[k]; !exists {
		j.order = append(j.order, k)
	}
	j.byKey[k] = c
	j.setAt[k] = time.Now()
	return true
}

// AddCookies parses and stores every Set-Cookie value in raws, returning the
// count actually accepted.
func (j *Jar) AddCookies(hostURL *url.URL, raws []string) int {
	n := 0
	for _, raw := range raws {
		c := ParseCookie(hostURL, raw)
		if j.AddCookie(hostURL, c) {
			n++
		}
	}
	return n
}

// CollectCookiesFromResponse reads every Set-Cookie header in headers and
// stores the ones that validate.
func (j *Jar) CollectCookiesFromResponse(hostURL *url.URL, headers http.Header) int {
	return j.AddCookies(hostURL, headers.Values("Set-Cookie"))
}

// RemoveFilter selects cookies for removal. A zero-value field means "match
// anything" for that dimension.
type RemoveFilter struct {
	Name   string
	Domain string
	Path   string
}

// RemoveCookies deletes every stored cookie matching f, returning the count
// removed. An empty filter removes everything.
func (j *Jar) RemoveCookies(f RemoveFilter) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	removed := 0
	kept := j.order[:0:0]
	for _, k := range j.order {
		c := j.byKey[k]
		if (f.Name == "" || f.Name == c.Name) &&
			(f.Domain == "" || f.Domain == c.Domain) &&
			(f.Path == "" || f.Path == c.Path) {
			delete(j.byKey, k)
			delete(j.setAt, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	j.order = kept
	return removed
}

// GetCookie returns the one stored cookie exactly matching the identity
// tuple, if any.
func (j *Jar) GetCookie(name, domain, path string, isHTTPS bool) (Cookie, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	c, ok := j.byKey[cookieKey{name: name, domain: domain, path: path, isHTTPS: isHTTPS}]
	if !ok || isExpired(c) {
		return Cookie{}, false
	}
	return c, true
}

// purgeExpiredLocked removes every cookie whose Expires has passed. Callers
// must hold j.mu for writing.
func (j *Jar) purgeExpiredLocked() {
	kept := j.order[:0:0]
	for _, k := range j.order {
		c := j.byKey[k]
		if isExpired(c) {
			delete(j.byKey, k)
			delete(j.setAt, k)
			continue
		}
		kept = append(kept, k)
	}
	j.order = kept
}

func isExpired(c Cookie) bool {
	return c.Expires != nil && c.Expires.Before(time.Now())
}

// GetRequestCookies returns the selected, serialized "name=value" pairs that
// apply to a request against reqURL, evaluated as if the request were to
// hostDomain (normally reqURL.Hostname(), but redirect handling may pass a
// different value while resolving a hop). Expired cookies are purged as a
// side effect.
func (j *Jar) GetRequestCookies(reqURL *url.URL, hostDomain string) []string {
	j.mu.Lock()
	j.purgeExpiredLocked()
	keys := make([]cookieKey, len(j.order))
	copy(keys, j.order)
	cookies := make([]Cookie, len(keys))
	for i, k := range keys {
		cookies[i] = j.byKey[k]
	}
	setAt := make(map[cookieKey]time.Time, len(keys))
	for _, k := range keys {
		setAt[k] = j.setAt[k]
	}
	j.mu.Unlock()

	match := selectCookieFactory(reqURL, hostDomain)
	var selected []Cookie
	for _, c := range cookies {
		if match(c) {
			selected = append(selected, c)
		}
	}

	// Longer paths are more specific and sort first, per RFC 6265 §5.4.
	sort.SliceStable(selected, func(i, j int) bool {
		return len(selected[i].Path) > len(selected[j].Path)
	})

	pairs := make([]string, 0, len(selected))
	total := 0
	for _, c := range selected {
		pair := fmt.Sprintf("%s=%s", c.Name, c.Value)
		if total+len(pair)+2 > maxCookieHeaderBytes && len(pairs) > 0 {
			break
		}
		pairs = append(pairs, pair)
		total += len(pair) + 2
	}
	return pairs
}

// ToJSON returns every non-expired stored cookie, in insertion order, for
// serialization into a session snapshot.
func (j *Jar) ToJSON() []Cookie {
	j.mu.Lock()
	j.purgeExpiredLocked()
	out := make([]Cookie, 0, len(j.order))
	for _, k := range j.order {
		out = append(out, j.byKey[k])
	}
	j.mu.Unlock()
	return out
}

// Count returns the number of cookies currently stored, including any not
// yet lazily purged.
func (j *Jar) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.order)
}

func isPublicSuffix(domain string) bool {
	suffix, icann := publicsuffix.PublicSuffix(strings.ToLower(domain))
	return icann && suffix == domain
}
