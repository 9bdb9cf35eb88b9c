package cookiejar

import (
	"net/http"
	"testing"
	"time"
)

func TestJarAddAndSelectRoundTrip(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/account")

	if !j.AddCookie(u, ParseCookie(u, "sid=abc123; Path=/")) {
		t.Fatal("expected cookie to be accepted")
	}

	pairs := j.GetRequestCookies(u, u.Hostname())
	if len(pairs) != 1 || pairs[0] != "sid=abc123" {
		t.Fatalf("got pairs=%v", pairs)
	}
}

func TestJarReplacesOnIdentityMatch(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/")

	j.AddCookie(u, ParseCookie(u, "sid=first"))
	j.AddCookie(u, ParseCookie(u, "sid=second"))

	if j.Count() != 1 {
		t.Fatalf("expected a single stored cookie, got %d", j.Count())
	}
	pairs := j.GetRequestCookies(u, u.Hostname())
	if len(pairs) != 1 || pairs[0] != "sid=second" {
		t.Fatalf("expected replacement, got %v", pairs)
	}
}

func TestJarDistinctPathsCoexist(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/")

	j.AddCookie(u, ParseCookie(u, "sid=root; Path=/"))
	j.AddCookie(u, ParseCookie(u, "sid=admin; Path=/admin"))

	if j.Count() != 2 {
		t.Fatalf("expected two distinct cookies, got %d", j.Count())
	}

	adminURL := mustURL(t, "https://example.com/admin/users")
	pairs := j.GetRequestCookies(adminURL, adminURL.Hostname())
	if len(pairs) != 2 {
		t.Fatalf("expected both cookies to apply under /admin, got %v", pairs)
	}
	if pairs[0] != "sid=admin" {
		t.Fatalf("expected the more specific path first, got %v", pairs)
	}
}

func TestJarExpiredCookiePurgedLazily(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/")

	past := time.Now().Add(-time.Hour)
	c := ParseCookie(u, "sid=abc")
	c.Expires = &past
	j.AddCookie(u, c)

	if j.Count() != 1 {
		t.Fatal("expected the expired cookie to be stored until queried")
	}
	pairs := j.GetRequestCookies(u, u.Hostname())
	if len(pairs) != 0 {
		t.Fatalf("expected no cookies returned, got %v", pairs)
	}
	if j.Count() != 0 {
		t.Fatal("expected the expired cookie to be purged after the query")
	}
}

func TestJarCollectCookiesFromResponse(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/")
	h := http.Header{}
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2; Secure")

	n := j.CollectCookiesFromResponse(u, h)
	if n != 2 {
		t.Fatalf("expected 2 cookies accepted, got %d", n)
	}
}

func TestJarRemoveCookiesFilter(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/")
	j.AddCookie(u, ParseCookie(u, "a=1"))
	j.AddCookie(u, ParseCookie(u, "b=2"))

	removed := j.RemoveCookies(RemoveFilter{Name: "a"})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if j.Count() != 1 {
		t.Fatalf("expected 1 cookie left, got %d", j.Count())
	}
}

func TestJarPublicSuffixGuard(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.co.uk/")
	c := ParseCookie(u, "sid=abc; Domain=co.uk")

	if j.AddCookie(u, c) {
		t.Fatal("expected a cookie scoped to a public suffix to be rejected")
	}
}

func TestJarCookieHeaderByteBudget(t *testing.T) {
	j := NewJar(true)
	u := mustURL(t, "https://example.com/")

	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'x'
	}
	for i := 0; i < 10; i++ {
		name := "c" + string(rune('a'+i))
		j.AddCookie(u, ParseCookie(u, name+"="+string(big)))
	}

	pairs := j.GetRequestCookies(u, u.Hostname())
	total := 0
	for _, p := range pairs {
		total += len(p) + 2
	}
	if total > maxCookieHeaderBytes {
		t.Fatalf("expected serialized cookies to respect the byte budget, got %d bytes", total)
	}
	if len(pairs) == 0 {
		t.Fatal("expected at least one cookie to survive the budget cut")
	}
}

func TestSelectCookieFactoryStrictRequiresSameSite(t *testing.T) {
	reqURL := mustURL(t, "https://sub.example.com/")
	match := selectCookieFactory(reqURL, "other.com")

	c := Cookie{Name: "sid", Value: "x", Domain: "other.com", Path: "/", SameSite: SameSiteStrict}
	if match(c) {
		t.Fatal("Strict cookie should not match a cross-site request")
	}
}
