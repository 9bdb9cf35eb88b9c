package request

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/p00dle/http-session/transport"
)

// hop is what the redirect loop produces per iteration: the URL it
// addressed, the response it got back, and whether that response was a
// 3xx it should follow.
type hop struct {
	url    *url.URL
	resp   *transport.Response
	status int
}

// runRedirectLoop drives one logical Do call across however many redirects
// it takes, stopping at the first non-3xx response or at maxRedirects.
func runRedirectLoop(d *Descriptor, target *url.URL, body formattedBody) (*hop, []string, int, *Error) {
	tr := d.transport()
	ctx := d.ctx()
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	keepMethodAndData := d.method() != http.MethodGet
	currentURL := target
	currentMethod := d.method()
	currentBody := body

	var previousURL *url.URL
	if d.PreviousURL != "" {
		if u, err := url.Parse(d.PreviousURL); err == nil {
			previousURL = u
		}
	}

	var redirectURLs []string
	redirectCount := 0
	var headers http.Header

	for {
		hostDomain := currentURL.Hostname()
		if redirectCount > 0 && previousURL != nil {
			hostDomain = previousURL.Hostname()
		}

		var cookiePairs []string
		if d.Jar != nil {
			cookiePairs = d.Jar.GetRequestCookies(currentURL, hostDomain)
		}

		if redirectCount == 0 {
			headers = buildHeaders(d.Headers, d, currentBody, currentURL, previousURL, cookiePairs)
		} else {
			applyRedirectHeaders(headers, previousURL, currentURL, cookiePairs, d.ExplicitCookies)
		}

		var reqBody io.Reader
		if keepMethodAndData {
			reqBody = currentBody.newReader()
		} else {
			headers.Del("Content-Length")
			headers.Del("Content-Type")
		}

		resp, err := tr.RoundTrip(ctx, &transport.Request{
			Method: currentMethod,
			URL:    currentURL.String(),
			Header: headers,
			Body:   reqBody,
		})
		if err != nil {
			return nil, redirectURLs, redirectCount, newError(TransportFailure, "transport error", err, nil)
		}

		if d.Jar != nil {
			d.Jar.CollectCookiesFromResponse(currentURL, resp.Header)
		}

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return &hop{url: currentURL, resp: resp, status: resp.StatusCode}, redirectURLs, redirectCount, nil
		}

		location := resp.Header.Get("Location")
		resp.Body.Close()

		nextURL, perr := resolveRedirect(currentURL, location)
		if perr != nil {
			return nil, redirectURLs, redirectCount, newError(ProtocolFailure, "Redirected to invalid URL", perr, nil)
		}

		redirectURLs = append(redirectURLs, nextURL.String())
		redirectCount++
		if redirectCount >= d.maxRedirects() {
			return nil, redirectURLs, redirectCount, newError(ProtocolFailure, "Max redirect count exceeded", nil, nil)
		}

		previousURL = currentURL
		currentURL = nextURL

		keepMethodAndData = resp.StatusCode == http.StatusTemporaryRedirect || resp.StatusCode == http.StatusPermanentRedirect
		if !keepMethodAndData {
			currentMethod = http.MethodGet
			currentBody = formattedBody{}
		}
	}
}

func resolveRedirect(base *url.URL, location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}
