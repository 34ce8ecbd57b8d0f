// Package security holds request checks shared by the HTTP and WebSocket
// surfaces.
package security

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker decides which browser origins may call the API or open
// the event stream. Loopback origins are always allowed; anything else must
// match an entry of the allow list.
type OriginChecker struct {
	allowedOrigins []string
}

// NewOriginChecker creates an origin checker. Entries are exact origins
// ("https://dash.example.com") or wildcard subdomains ("*.example.com").
func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	cleaned := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	return &OriginChecker{allowedOrigins: cleaned}
}

// Allowed reports whether origin may be served. An empty origin is a
// non-browser or same-origin request and is allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if isLocalhost(parsed.Hostname()) {
		return true
	}

	for _, allowed := range oc.allowedOrigins {
		if matchOrigin(parsed, origin, allowed) {
			return true
		}
	}
	return false
}

// CheckOrigin validates the Origin header of r.
func (oc *OriginChecker) CheckOrigin(r *http.Request) bool {
	return oc.Allowed(r.Header.Get("Origin"))
}

func isLocalhost(host string) bool {
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasSuffix(host, ".localhost")
}

// matchOrigin supports exact matches and "*.example.com" patterns; the
// wildcard does not match the bare domain.
func matchOrigin(parsed *url.URL, origin, allowed string) bool {
	if origin == allowed {
		return true
	}
	if domain, ok := strings.CutPrefix(allowed, "*."); ok {
		return strings.HasSuffix(parsed.Hostname(), "."+domain)
	}
	return false
}
