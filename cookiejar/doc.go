// Package cookiejar parses, validates, stores, and selects HTTP cookies
// against RFC 6265-like rules.
//
// Identity for storage purposes is the 4-tuple (name, domain, path, isHttps):
// adding a cookie whose tuple matches one already stored replaces it.
// Expired cookies are purged lazily, the next time the jar is asked for the
// cookies applicable to an outgoing request.
package cookiejar
