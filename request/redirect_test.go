package request

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/p00dle/http-session/cookiejar"
)

func TestDoRedirectChainPreservesMethodOn307308AndDowngradesOthers(t *testing.T) {
	var seenMethods []string
	var seenBodies []string

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		recordHop(r, &seenMethods, &seenBodies)
		w.Header().Set("Location", "/foo")
		w.WriteHeader(307)
	})
	mux.HandleFunc("/foo", func(w http.ResponseWriter, r *http.Request) {
		recordHop(r, &seenMethods, &seenBodies)
		w.Header().Set("Location", "/foo/bar")
		w.WriteHeader(308)
	})
	mux.HandleFunc("/foo/bar", func(w http.ResponseWriter, r *http.Request) {
		recordHop(r, &seenMethods, &seenBodies)
		w.Header().Set("Location", "/next")
		w.WriteHeader(301)
	})
	mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
		recordHop(r, &seenMethods, &seenBodies)
		w.WriteHeader(200)
		w.Write([]byte("123"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := &Descriptor{
		URL:      srv.URL + "/start",
		Method:   http.MethodPost,
		DataType: DataRaw,
		Data:     "abc",
	}
	resp, err := Do(d)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Data.(string) != "123" {
		t.Fatalf("got data=%v", resp.Data)
	}
	if resp.RedirectCount != 3 {
		t.Fatalf("got redirectCount=%d", resp.RedirectCount)
	}
	want := []string{"POST", "POST", "POST", "GET"}
	for i, m := range want {
		if seenMethods[i] != m {
			t.Fatalf("hop %d: got method %s, want %s", i, seenMethods[i], m)
		}
	}
	if seenBodies[0] != "abc" || seenBodies[1] != "abc" || seenBodies[2] != "abc" {
		t.Fatalf("expected 307/308 to preserve the body, got %v", seenBodies)
	}
	if seenBodies[3] != "" {
		t.Fatalf("expected the 301 downgrade hop to carry an empty body, got %q", seenBodies[3])
	}
}

func TestDoMaxRedirectsExceeded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/loop")
		w.WriteHeader(302)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := &Descriptor{URL: srv.URL + "/loop", MaxRedirects: 2}
	_, err := Do(d)
	if err == nil || err.Kind() != ProtocolFailure {
		t.Fatalf("expected ProtocolFailure, got %v", err)
	}
}

func TestDoCollectsAndSendsCookiesAcrossRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set-cookie", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "foo=bar")
		w.Header().Add("Set-Cookie", "boo=baz")
		w.Header().Set("Location", "/get-cookie")
		w.WriteHeader(302)
	})
	var gotCookie string
	mux.HandleFunc("/get-cookie", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.WriteHeader(200)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	jar := cookiejar.NewJar(true)
	jarURL := mustParse(t, srv.URL+"/")
	jar.AddCookie(jarURL, cookiejar.ParseCookie(jarURL, "a=b"))

	d := &Descriptor{URL: srv.URL + "/set-cookie", Jar: jar}
	_, err := Do(d)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotCookie != "a=b; foo=bar; boo=baz" {
		t.Fatalf("got Cookie header=%q", gotCookie)
	}
}

func TestDoInvalidLocationFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://%zz")
		w.WriteHeader(302)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := &Descriptor{URL: srv.URL + "/bad"}
	_, err := Do(d)
	if err == nil || err.Kind() != ProtocolFailure {
		t.Fatalf("expected ProtocolFailure, got %v", err)
	}
}

func recordHop(r *http.Request, methods *[]string, bodies *[]string) {
	buf := make([]byte, 64)
	n, _ := r.Body.Read(buf)
	*methods = append(*methods, r.Method)
	*bodies = append(*bodies, string(buf[:n]))
}

func mustParse(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}
