package server

import "net/http"

// ResolveAllowedOrigin returns origin when it appears in the allowlist,
// otherwise the fallback (which may be empty, meaning "no CORS header").
func ResolveAllowedOrigin(origin string, allowlist []string, fallback string) string {
	for _, allowed := range allowlist {
		if allowed == origin {
			return origin
		}
	}
	return fallback
}

// withCORS resolves the response origin from the request and answers
// preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := ResolveAllowedOrigin(r.Header.Get("Origin"), s.cfg.CORS.AllowedOrigins, s.cfg.CORS.DefaultOrigin)
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
