package flows

import (
	"net"
	"net/url"
	"strings"
)

// ResolveRedirect returns the destination to resume after an auth event.
// Absolute targets on the same origin as base (scheme, host and port) are
// returned unchanged. Rooted paths such as "/dashboard?tab=1" are resolved
// against base. Everything else, including protocol-relative and malformed
// targets, resolves to base.
func ResolveRedirect(target, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() || baseURL.Host == "" {
		return base
	}

	if strings.ContainsAny(target, "\\\r\n\t") {
		return base
	}

	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		ref, err := url.Parse(target)
		if err != nil || ref.Host != "" {
			return base
		}
		return baseURL.ResolveReference(ref).String()
	}

	targetURL, err := url.Parse(target)
	if err != nil || !targetURL.IsAbs() || targetURL.User != nil {
		return base
	}
	if originOf(targetURL) != originOf(baseURL) {
		return base
	}
	return target
}

func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return scheme + "://" + net.JoinHostPort(strings.ToLower(u.Hostname()), port)
}
