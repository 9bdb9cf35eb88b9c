// Package request implements the HTTP request executor: one call formats a
// body, builds headers, dispatches through a transport, follows redirects,
// and materializes a typed response, or fails through a single decorated
// error type.
package request

import (
	"context"
	"net/http"
	"time"

	"github.com/p00dle/http-session/cookiejar"
	"github.com/p00dle/http-session/internal/support"
	"github.com/p00dle/http-session/transport"
)

// DataType selects how Descriptor.Data is formatted into a request body.
type DataType int

const (
	DataRaw DataType = iota
	DataJSON
	DataForm
	DataBinary
	DataStream
)

// ResponseType selects how the response body is materialized.
type ResponseType int

const (
	ResponseString ResponseType = iota
	ResponseBinary
	ResponseJSON
	ResponseStream
)

// Descriptor is the one input to Do: everything needed to perform a single
// logical request, including however many redirect hops it takes.
type Descriptor struct {
	URL         string
	PreviousURL string
	Method      string

	DataType DataType
	Data     any

	ResponseType ResponseType

	Headers http.Header
	// ExplicitCookies are name=value pairs appended to the Cookie header
	// verbatim, on top of whatever the Jar selects.
	ExplicitCookies []string
	// Jar overrides the jar the caller's session would otherwise supply.
	// A session fills a nil Jar with its own jar; when Do is called
	// directly, a nil Jar means "no cookie handling for this call".
	Jar *cookiejar.Jar

	Timeout      time.Duration
	Context      context.Context
	MaxRedirects int

	Transport transport.Transport
	Logger    support.Logger

	HideSecrets []string

	ValidateStatus         func(status int) bool
	ValidateJSON           func(data any) bool
	AssertNonEmptyResponse bool
}

func (d *Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return d.Method
}

func (d *Descriptor) maxRedirects() int {
	if d.MaxRedirects == 0 {
		return 5
	}
	return d.MaxRedirects
}

func (d *Descriptor) ctx() context.Context {
	if d.Context != nil {
		return d.Context
	}
	return context.Background()
}

func (d *Descriptor) logger() support.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return support.NoopLogger{}
}

func (d *Descriptor) transport() transport.Transport {
	if d.Transport != nil {
		return d.Transport
	}
	return defaultTransport()
}
