package transport

import "context"

// RoundTripFunc adapts a plain function to the Transport interface, the
// transport-package analogue of http.HandlerFunc. It exists so request and
// session tests can stub transport behavior without standing up an
// httptest server for every case.
type RoundTripFunc func(ctx context.Context, req *Request) (*Response, error)

// RoundTrip implements Transport.
func (f RoundTripFunc) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

var _ Transport = RoundTripFunc(nil)
