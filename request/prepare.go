package request

import (
	"net/http"
	"net/url"
)

// Prepared is a request that has been fully formatted and headered, but not
// yet sent. It exists for callers (mainly tests) that want to inspect the
// exact headers and body Do would send before committing to the network
// call.
type Prepared struct {
	descriptor *Descriptor
	target     *url.URL
	body       formattedBody
	headers    http.Header
}

// Headers returns the headers Send will issue on the first hop.
func (p *Prepared) Headers() http.Header {
	return p.headers
}

// Body returns the formatted wire body text. Empty for binary/stream data
// types, which render as "[BINARY]"/"[STREAM]" in snapshots instead.
func (p *Prepared) Body() string {
	return p.body.text
}

// URL returns the fully parsed target URL.
func (p *Prepared) URL() *url.URL {
	return p.target
}

// Prepare validates the descriptor, formats its body, and builds the
// first-hop header set without dispatching anything.
func Prepare(d *Descriptor) (*Prepared, *Error) {
	target, err := url.Parse(d.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, d.decorate(newError(InvalidInput, "invalid target URL", err, nil), "", nil)
	}

	body, ferr := formatBody(d)
	if ferr != nil {
		return nil, d.decorate(ferr, target.String(), &body)
	}

	var previousURL *url.URL
	if d.PreviousURL != "" {
		if u, perr := url.Parse(d.PreviousURL); perr == nil {
			previousURL = u
		}
	}

	var cookiePairs []string
	if d.Jar != nil {
		cookiePairs = d.Jar.GetRequestCookies(target, target.Hostname())
	}

	headers := buildHeaders(d.Headers, d, body, target, previousURL, cookiePairs)

	return &Prepared{descriptor: d, target: target, body: body, headers: headers}, nil
}

// Send dispatches the prepared request, following redirects exactly as Do
// would. Send re-derives everything from the original descriptor rather
// than replaying the inspected headers verbatim, since cookies and the
// jar may have changed between Prepare and Send.
func (p *Prepared) Send() (*Response, *Error) {
	return Do(p.descriptor)
}
