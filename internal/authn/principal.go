// Package authn decodes and verifies bearer tokens into a Principal carried
// on the request context. Tokens come from an upstream OIDC identity provider
// or from Issuer, which mints HMAC-signed tokens; the package does not manage
// sessions.
package authn

import "context"

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	Subject  string   `json:"subject"`
	Email    string   `json:"email,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	Ontology string   `json:"ontology,omitempty"` // restricts the caller to one ontology, if set
}

// HasScope reports whether the principal carries the named scope.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type contextKey string

const principalContextKey contextKey = "kgraph.principal"

// WithPrincipal returns a new context with p attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// CurrentPrincipal extracts the principal attached to ctx, if any.
func CurrentPrincipal(ctx context.Context) (*Principal, bool) {
	v := ctx.Value(principalContextKey)
	if v == nil {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}
