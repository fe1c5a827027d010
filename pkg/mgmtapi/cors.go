package mgmtapi

import (
	"net/http"
	"strings"
)

// corsMiddleware adds permissive CORS headers to every management
// response and answers preflight OPTIONS requests directly, so a
// browser-based management client is never blocked by same-origin
// restrictions. Unlike a user-facing mock server's CORS layer this
// carries no per-origin allowlist: the management API is a local
// control surface, not mocked traffic.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", requestedHeaders(r))
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestedHeaders(r *http.Request) string {
	if h := r.Header.Get("Access-Control-Request-Headers"); h != "" {
		return h
	}
	return strings.Join([]string{"Content-Type", "Accept"}, ", ")
}
