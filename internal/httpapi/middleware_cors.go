package httpapi

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsDefaultHeader = "Authorization, Content-Type"
)

// corsPolicy admits the configured frontend origins, the API's own host and loopback
// origins. Credentialed requests are allowed for every admitted origin.
type corsPolicy struct {
	allowed map[string]struct{}
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{allowed: map[string]struct{}{}}
	for _, o := range origins {
		if key := originKey(o); key != "" {
			p.allowed[key] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

		switch {
		case origin == "":
		case p.admits(origin, r):
			p.decorate(w.Header(), origin, r)
			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		case preflight:
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p corsPolicy) decorate(h http.Header, origin string, r *http.Request) {
	h.Add("Vary", "Origin")
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Max-Age", "600")
	if req := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers")); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	} else {
		h.Set("Access-Control-Allow-Headers", corsDefaultHeader)
	}
}

func (p corsPolicy) admits(origin string, r *http.Request) bool {
	key := originKey(origin)
	if key == "" {
		return false
	}
	if _, ok := p.allowed[key]; ok {
		return true
	}

	u, _ := url.Parse(key)
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if reqHost := strings.ToLower(requestHostname(r.Host)); reqHost != "" && host == reqHost {
		return true
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// originKey reduces an origin to scheme://host[:port], lower-cased.
func originKey(origin string) string {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func requestHostname(hostport string) string {
	v := strings.TrimSpace(hostport)
	if host, _, err := net.SplitHostPort(v); err == nil {
		return strings.Trim(host, "[]")
	}
	return strings.Trim(v, "[]")
}
