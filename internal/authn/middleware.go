package authn

import (
	"net/http"
	"strings"
)

// Middleware attaches the authenticated Principal to the request context
// when a valid "Authorization: Bearer <token>" header is present. When
// require is true, requests without a valid token get 401.
func Middleware(v Verifier, require bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok, ok := bearerToken(r); ok {
				if p, err := v.Verify(r.Context(), tok); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), p))
				} else if require {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			} else if require {
				w.Header().Set("WWW-Authenticate", `Bearer realm="kgraph"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScope wraps a handler, rejecting requests whose principal lacks scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := CurrentPrincipal(r.Context())
			if !ok || !p.HasScope(scope) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	return tok, tok != ""
}
