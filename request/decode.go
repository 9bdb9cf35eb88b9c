package request

import (
	"compress/gzip"
	"encoding/json"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
)

// decodeBody wraps rawBody in the decompressor named by encoding, or
// returns it unchanged for an empty/identity encoding. An unrecognized
// encoding is a ProtocolFailure.
func decodeBody(rawBody io.ReadCloser, encoding string) (io.ReadCloser, *Error) {
	switch encoding {
	case "", "identity":
		return rawBody, nil
	case "gzip":
		gz, err := gzip.NewReader(rawBody)
		if err != nil {
			return nil, newError(ProtocolFailure, "unable to decode gzip response", err, nil)
		}
		return &readCloserPair{Reader: gz, closer: rawBody}, nil
	case "br":
		br := brotli.NewReader(rawBody)
		return &readCloserPair{Reader: br, closer: rawBody}, nil
	case "deflate":
		fr := flate.NewReader(rawBody)
		return &readCloserPair{Reader: fr, closer: joinClosers(fr, rawBody)}, nil
	default:
		return nil, newError(ProtocolFailure, "unrecognized Content-Encoding: "+encoding, nil, nil)
	}
}

// readCloserPair pairs a decompressing Reader with the underlying wire body
// so Close releases both.
type readCloserPair struct {
	io.Reader
	closer io.Closer
}

func (p *readCloserPair) Close() error {
	return p.closer.Close()
}

type multiCloser struct {
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func joinClosers(closers ...io.Closer) io.Closer {
	return &multiCloser{closers: closers}
}

// materialize drains (or, for ResponseStream, exposes) body per responseType.
func materialize(body io.ReadCloser, responseType ResponseType) (any, *Error) {
	switch responseType {
	case ResponseStream:
		return body, nil

	case ResponseBinary:
		defer body.Close()
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, newError(TransportFailure, "failed reading response body", err, nil)
		}
		return b, nil

	case ResponseString:
		defer body.Close()
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, newError(TransportFailure, "failed reading response body", err, nil)
		}
		return string(b), nil

	case ResponseJSON:
		defer body.Close()
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, newError(TransportFailure, "failed reading response body", err, nil)
		}
		var data any
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, newError(ValidationFailure, "Unable to parse response data as JSON", err, nil)
		}
		return data, nil

	default:
		defer body.Close()
		return nil, newError(InvalidInput, "invalid response type", nil, nil)
	}
}
