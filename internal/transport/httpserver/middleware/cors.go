package middleware

import (
	"net/http"
	"strings"
)

const (
	corsMethods = "GET,POST,OPTIONS"
	corsHeaders = "Authorization,Content-Type,X-Request-Id"
	corsExpose  = "X-Request-Id"
	corsMaxAge  = "86400"
)

type corsPolicy map[string]struct{}

func (p corsPolicy) allows(origin string) bool {
	_, ok := p[origin]
	return origin != "" && ok
}

// NewCORS allows the listed origins to call the API with credentials, so the
// access cookie travels with cross origin requests. Preflights from other
// origins fall through to the router.
func NewCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := make(corsPolicy, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			policy[origin] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			header := w.Header()
			header.Add("Vary", "Origin")
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Expose-Headers", corsExpose)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				header.Set("Access-Control-Allow-Methods", corsMethods)
				header.Set("Access-Control-Allow-Headers", corsHeaders)
				header.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
