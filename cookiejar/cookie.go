package cookiejar

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SameSite mirrors the three legal values of the cookie SameSite attribute.
type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
	SameSiteNone   SameSite = "None"
)

// Cookie is the parsed representation of one Set-Cookie header. Identity for
// jar replacement purposes is (Name, Domain, Path, IsHTTPS).
type Cookie struct {
	Name            string
	Value           string
	Domain          string
	Path            string
	IsHTTPS         bool
	AllowSubDomains bool
	SameSite        SameSite
	Secure          bool
	Expires         *time.Time

	// HasInvalidAttributes is set by the parser whenever it saw something it
	// could not make sense of; ValidateCookie always rejects such a cookie.
	HasInvalidAttributes bool
}

// ParseCookie parses a single Set-Cookie header value, raw, in the context of
// the host URL it was received from. Parsing is total: it always returns a
// Cookie, setting HasInvalidAttributes when the text could not be fully
// understood rather than failing outright.
func ParseCookie(hostURL *url.URL, raw string) Cookie {
	c := Cookie{
		IsHTTPS:         hostURL.Scheme == "https",
		Domain:          hostURL.Hostname(),
		Path:            "/",
		AllowSubDomains: false,
		SameSite:        SameSiteLax,
	}

	var nameSet, hasExpires, hasMaxAge bool

	for _, tok := range strings.Split(raw, "; ") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		eq := strings.Index(tok, "=")
		if eq == -1 {
			switch strings.ToLower(tok) {
			case "secure":
				c.Secure = true
			case "httponly":
				// Stored cookies are not scoped by JS visibility here.
			default:
				c.HasInvalidAttributes = true
			}
			continue
		}

		left := strings.TrimSpace(tok[:eq])
		right := strings.TrimSpace(tok[eq+1:])

		switch strings.ToLower(left) {
		case "expires":
			t, err := parseExpires(right)
			if err != nil {
				c.HasInvalidAttributes = true
				continue
			}
			if !hasExpires && !hasMaxAge {
				c.Expires = &t
				hasExpires = true
			}
		case "max-age":
			n, err := strconv.Atoi(right)
			if err != nil {
				c.HasInvalidAttributes = true
				continue
			}
			t := time.Now().Add(time.Duration(n) * time.Second)
			c.Expires = &t
			hasExpires = true
			hasMaxAge = true
		case "domain":
			if right != "" {
				c.Domain = strings.TrimPrefix(right, ".")
				c.AllowSubDomains = true
			}
		case "path":
			if right != "" {
				c.Path = right
			}
		case "samesite":
			switch {
			case strings.EqualFold(right, string(SameSiteStrict)):
				c.SameSite = SameSiteStrict
			case strings.EqualFold(right, string(SameSiteLax)):
				c.SameSite = SameSiteLax
			case strings.EqualFold(right, string(SameSiteNone)):
				c.SameSite = SameSiteNone
			default:
				c.HasInvalidAttributes = true
			}
		default:
			if nameSet {
				// Unknown attribute name.
				c.HasInvalidAttributes = true
				continue
			}
			c.Name = unquote(left)
			c.Value = unquote(right)
			nameSet = true
		}
	}

	return c
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

var expiresFormats = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Monday, 02-Jan-06 15:04:05 MST",
	"Mon Jan 2 15:04:05 2006",
	time.RFC850,
	time.ANSIC,
}

func parseExpires(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, format := range expiresFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
