package auth

import (
	"net/http"
	"net/url"
	"strings"
)

var (
	// API routes enforce auth themselves and answer with JSON.
	passthroughPrefixes = []string{"/api/", "/static/", "/healthz", "/favicon.ico"}
	publicPrefixes      = []string{"/share/", "/auth/"}
	authPagePrefixes    = []string{"/login", "/signup"}
)

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware attaches the signed-in user to the request context and guards
// pages. Signed-in users visiting the login or signup pages go home, and
// anonymous users on any other page go to /login?from=<path>.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.Current(r)
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}

		path := r.URL.Path
		switch {
		case hasAnyPrefix(path, passthroughPrefixes), hasAnyPrefix(path, publicPrefixes):
		case hasAnyPrefix(path, authPagePrefixes):
			if user != nil {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		case user == nil:
			http.Redirect(w, r, "/login?from="+url.QueryEscape(path), http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SafeRedirect returns from if it is a local absolute path, and "/"
// otherwise.
func SafeRedirect(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return "/"
	}
	return from
}
