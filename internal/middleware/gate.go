package middleware

import (
	"net/http"
	"strings"
)

// Redirect targets.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

var (
	publicOnlyPaths = []string{"/login", "/register"}
	protectedPaths  = []string{"/profile", "/upload"}
)

// Decision is the outcome of gating a path.
type Decision struct {
	// Redirect is empty when the request may pass.
	Redirect string
}

// Pass reports whether the request continues to its handler.
func (d Decision) Pass() bool {
	return d.Redirect == ""
}

// Decide classifies path and returns where, if anywhere, the caller must go.
// Signed-in callers are sent home from the login and register pages; anonymous
// callers are sent to login from protected paths and their sub-paths.
func Decide(path string, authenticated bool) Decision {
	if authenticated && matchesAny(path, publicOnlyPaths) {
		return Decision{Redirect: HomePath}
	}
	if !authenticated && matchesAny(path, protectedPaths) {
		return Decision{Redirect: LoginPath}
	}
	return Decision{}
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Gate redirects page requests according to Decide. Authentication means a
// cookie that verifies, not merely one that is present. API routes are left
// to their handlers.
func Gate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			_, authenticated := verifySession(r, verifier)
			decision := Decide(r.URL.Path, authenticated)
			if decision.Pass() {
				next.ServeHTTP(w, r)
				return
			}

			status := http.StatusFound
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				status = http.StatusTemporaryRedirect
			}
			http.Redirect(w, r, decision.Redirect, status)
		})
	}
}
