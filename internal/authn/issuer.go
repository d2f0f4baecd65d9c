package authn

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints HMAC-signed bearer tokens for the CLI and for service-to-service
// calls in single-tenant deployments without an external OIDC provider.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an Issuer using secret to sign tokens valid for ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token for the given principal fields.
func (i *Issuer) Issue(subject, email string, scopes []string, ontology string) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email:    email,
		Scopes:   scopes,
		Ontology: ontology,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(i.secret)
}
