package request

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
)

func TestDoDecompressesGzipBrDeflate(t *testing.T) {
	const want = "abc123456"

	cases := []struct {
		encoding string
		compress func(string) []byte
	}{
		{"gzip", gzipCompress},
		{"br", brotliCompress},
		{"deflate", deflateCompress},
	}

	for _, tc := range cases {
		t.Run(tc.encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tc.encoding)
				w.Write(tc.compress(want))
			}))
			defer srv.Close()

			resp, err := Do(&Descriptor{URL: srv.URL})
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if resp.Data.(string) != want {
				t.Fatalf("got data=%q", resp.Data)
			}
		})
	}
}

func TestDoUnknownContentEncodingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "xyz")
		w.Write([]byte("doesn't matter"))
	}))
	defer srv.Close()

	_, err := Do(&Descriptor{URL: srv.URL})
	if err == nil || err.Kind() != ProtocolFailure {
		t.Fatalf("expected ProtocolFailure for an unrecognized encoding, got %v", err)
	}
}

func gzipCompress(s string) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write([]byte(s))
	w.Close()
	return buf.Bytes()
}

func brotliCompress(s string) []byte {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	w.Write([]byte(s))
	w.Close()
	return buf.Bytes()
}

func deflateCompress(s string) []byte {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	w.Write([]byte(s))
	w.Close()
	return buf.Bytes()
}
