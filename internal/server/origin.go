package server

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// CheckOrigin builds a websocket origin check.
//
// Requests without an Origin header (non-browser clients) are accepted, as are origins on the
// request's own host, loopback origins such as a local dev server, and any origin listed in allowed.
// An allowed entry of "*" accepts every origin.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[normalizeOrigin(o)] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origins["*"] {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) || isLoopback(u.Hostname()) {
			return true
		}
		return origins[normalizeOrigin(u.Scheme+"://"+u.Host)]
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
