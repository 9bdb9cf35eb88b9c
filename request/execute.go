package request

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/p00dle/http-session/cookiejar"
	"github.com/p00dle/http-session/internal/support"
	"github.com/p00dle/http-session/transport"
)

// logBodyPreviewLimit bounds how many runes of a redacted formatted body
// reach a debug log line.
const logBodyPreviewLimit = 512

var (
	defaultTransportOnce sync.Once
	defaultTransportInst transport.Transport
)

func defaultTransport() transport.Transport {
	defaultTransportOnce.Do(func() {
		defaultTransportInst = transport.New()
	})
	return defaultTransportInst
}

// Do performs one logical HTTP request: format the body, build headers,
// dispatch through the transport, follow redirects, and materialize a
// typed response. One call, one outcome; Do never retries.
func Do(d *Descriptor) (*Response, *Error) {
	start := time.Now()
	target, err := url.Parse(d.URL)
	if err != nil {
		return nil, d.decorate(newError(InvalidInput, "invalid target URL", err, nil), "", nil)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, d.decorate(newError(InvalidInput, "invalid target URL", nil, nil), "", nil)
	}

	body, ferr := formatBody(d)
	if ferr != nil {
		return nil, d.decorate(ferr, target.String(), &body)
	}

	logger := d.logger()
	logger.Debugf("request %s %s body=%s", d.method(), target.String(), logPreview(body, d))

	h, redirectURLs, redirectCount, rerr := runRedirectLoop(d, target, body)
	if rerr != nil {
		logger.Debugf("request %s %s failed: %s", d.method(), target.String(), rerr.Error())
		return nil, d.decorate(rerr, target.String(), &body)
	}
	firstByte := time.Since(start)

	encoding := h.resp.Header.Get("Content-Encoding")
	decoded, derr := decodeBody(h.resp.Body, encoding)
	if derr != nil {
		h.resp.Body.Close()
		return nil, d.decorate(derr, h.url.String(), &body)
	}

	data, merr := materialize(decoded, d.ResponseType)
	if merr != nil {
		return nil, d.decorate(merr, h.url.String(), &body)
	}

	if d.ValidateStatus != nil && !d.ValidateStatus(h.resp.StatusCode) {
		closeIfStream(data, d.ResponseType)
		return nil, d.decorate(newError(ValidationFailure, "response status failed validation", nil, nil), h.url.String(), &body)
	}

	if d.AssertNonEmptyResponse && isEmptyResponse(data, d.ResponseType) {
		closeIfStream(data, d.ResponseType)
		return nil, d.decorate(newError(ValidationFailure, "Empty response", nil, nil), h.url.String(), &body)
	}

	if d.ResponseType == ResponseJSON && d.ValidateJSON != nil && !d.ValidateJSON(data) {
		return nil, d.decorate(newError(ValidationFailure, "Invalid response JSON", nil, nil), h.url.String(), &body)
	}

	resp := &Response{
		Status:        h.resp.StatusCode,
		StatusMessage: h.resp.Status,
		FinalURL:      h.url.String(),
		RedirectURLs:  redirectURLs,
		RedirectCount: redirectCount,
		Cookies:       jarCookiesAsMap(d.Jar, h.url),
		Headers:       h.resp.Header,
		Data:          data,
		Request:       d.snapshot(h.url.String(), &body),
		Timing:        Timing{FirstByte: firstByte, Total: time.Since(start)},
	}
	logger.Debugf("request %s %s -> %d (%d redirect(s))", d.method(), target.String(), resp.Status, redirectCount)
	return resp, nil
}

// logPreview renders a truncated, secret-redacted preview of body's wire
// form for a debug log line.
func logPreview(body formattedBody, d *Descriptor) string {
	switch {
	case body.isBinary:
		return "[BINARY]"
	case body.isStream:
		return "[STREAM]"
	default:
		return support.Truncate(redactFormattedText(body.text, d.DataType, d.HideSecrets), logBodyPreviewLimit)
	}
}

func closeIfStream(data any, rt ResponseType) {
	if rt != ResponseStream {
		return
	}
	if rc, ok := data.(interface{ Close() error }); ok {
		rc.Close()
	}
}

func isEmptyResponse(data any, rt ResponseType) bool {
	switch rt {
	case ResponseString:
		s, _ := data.(string)
		return s == ""
	case ResponseBinary:
		b, _ := data.([]byte)
		return len(b) == 0
	default:
		return false
	}
}

func jarCookiesAsMap(jar *cookiejar.Jar, u *url.URL) map[string]string {
	out := map[string]string{}
	if jar == nil {
		return out
	}
	for _, pair := range jar.GetRequestCookies(u, u.Hostname()) {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		out[name] = value
	}
	return out
}
