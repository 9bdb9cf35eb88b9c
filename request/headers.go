package request

import (
	"net/http"
	"net/url"
	"strconv"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:100.0) Gecko/20100101 Firefox/100.0"

func cloneHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		clone := make([]string, len(vs))
		copy(clone, vs)
		out[k] = clone
	}
	return out
}

// buildHeaders constructs the full header set for one hop of a request:
// targetURL is the URL this hop is addressed to, previousURL is the URL the
// navigation came from (empty if there is none), and cookiePairs are the
// already-selected "name=value" strings to attach.
func buildHeaders(base http.Header, d *Descriptor, body formattedBody, targetURL, previousURL *url.URL, cookiePairs []string) http.Header {
	h := cloneHeaders(base)

	if d.method() != http.MethodGet && body.hasBody() && h.Get("Content-Type") == "" && h.Get("Content-Length") == "" {
		if body.contentType != "" {
			h.Set("Content-Type", body.contentType)
		} else if body.isBinary {
			h.Set("Content-Type", "application/octet-stream")
		}
		switch {
		case body.isBinary:
			h.Set("Content-Length", strconv.Itoa(len(body.rawBinary)))
		case body.isStream:
			// unknown length, do not set Content-Length.
		default:
			h.Set("Content-Length", strconv.Itoa(len(body.text)))
		}
	}

	if h.Get("Referer") == "" && previousURL != nil {
		if ref := refererFor(previousURL, targetURL); ref != "" {
			h.Set("Referer", ref)
		}
	}

	if h.Get("Origin") == "" {
		origin := targetURL.Scheme + "://" + targetURL.Host
		if previousURL != nil {
			origin = previousURL.Scheme + "://" + previousURL.Host
		}
		h.Set("Origin", origin)
	}
	if h.Get("Host") == "" {
		host := targetURL.Host
		if previousURL != nil {
			host = previousURL.Host
		}
		h.Set("Host", host)
	}
	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", defaultUserAgent)
	}
	if h.Get("Accept") == "" {
		if d.ResponseType == ResponseJSON {
			h.Set("Accept", "application/json")
		} else {
			h.Set("Accept", "text/html, application/xhtml+xml, application/xml;q=0.9, */*;q=0.8")
		}
	}
	if h.Get("Accept-Encoding") == "" {
		h.Set("Accept-Encoding", "gzip, deflate, br")
	}
	if h.Get("Accept-Language") == "" {
		h.Set("Accept-Language", "en-GB,en;q=0.5")
	}

	allCookies := append(append([]string{}, cookiePairs...), d.ExplicitCookies...)
	if len(allCookies) > 0 {
		existing := h.Values("Cookie")
		h.Del("Cookie")
		for _, c := range existing {
			h.Add("Cookie", c)
		}
		h.Add("Cookie", joinCookiePairs(allCookies))
	}

	return h
}

func joinCookiePairs(pairs []string) string {
	out := ""
	for i, p := range pairs {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}

// applyRedirectHeaders mutates h in place for a followed redirect hop: Host
// and Origin are unconditionally pointed at newURL, Referer is recomputed
// against the hop being left, and Cookie is replaced with a freshly
// selected list for newURL.
func applyRedirectHeaders(h http.Header, previousHopURL, newURL *url.URL, cookiePairs, explicitCookies []string) {
	h.Set("Host", newURL.Host)
	h.Set("Origin", newURL.Scheme+"://"+newURL.Host)

	h.Del("Referer")
	if ref := refererFor(previousHopURL, newURL); ref != "" {
		h.Set("Referer", ref)
	}

	h.Del("Cookie")
	allCookies := append(append([]string{}, cookiePairs...), explicitCookies...)
	if len(allCookies) > 0 {
		h.Set("Cookie", joinCookiePairs(allCookies))
	}
}

// refererFor implements strict-origin-when-cross-origin: the referrer
// policy that reveals the full URL on a same-origin navigation, only the
// origin on a cross-origin one, and nothing at all on an https→http
// downgrade.
func refererFor(previous, target *url.URL) string {
	if previous == nil {
		return ""
	}
	if previous.Scheme == "https" && target.Scheme == "http" {
		return ""
	}
	if previous.Scheme == target.Scheme && previous.Host == target.Host {
		u := *previous
		u.Fragment = ""
		return u.String()
	}
	return previous.Scheme + "://" + previous.Host
}
