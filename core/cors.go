package core

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSMiddleware handles preflight requests and decorates responses with CORS headers.
// Origins may be exact, "*", a wildcard subdomain ("https://*.example.com")
// or a wildcard port ("http://localhost:*").
func CORSMiddleware(config CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			applyCORS(w, r, config)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func applyCORS(w http.ResponseWriter, r *http.Request, config CORSConfig) {
	origin := r.Header.Get("Origin")
	if !isOriginAllowed(origin, config.AllowedOrigins) {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
	}
}

// isOriginAllowed reports whether origin matches one of the allowed patterns.
// An empty origin is a same-origin request and needs no CORS headers.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", allowed == origin:
			return true
		case strings.Contains(allowed, "*."):
			idx := strings.Index(allowed, "*.")
			prefix, suffix := allowed[:idx], allowed[idx+1:]
			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				// the wildcard must cover at least one subdomain label
				if len(origin) > len(prefix)+len(suffix) {
					return true
				}
			}
		case strings.HasSuffix(allowed, ":*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) {
				return true
			}
		}
	}
	return false
}
