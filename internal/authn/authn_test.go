package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerify_HMAC(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	tok, err := issuer.Issue("user-1", "user@example.com", []string{"ingest:write"}, "acme")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	v := NewHMACVerifier("test-secret")
	p, err := v.Verify(t.Context(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Subject != "user-1" || p.Email != "user@example.com" || p.Ontology != "acme" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if !p.HasScope("ingest:write") {
		t.Fatalf("expected scope ingest:write, got %v", p.Scopes)
	}
}

func TestVerify_WrongSecretRejected(t *testing.T) {
	issuer := NewIssuer("secret-a", time.Hour)
	tok, _ := issuer.Issue("user-1", "", nil, "")

	v := NewHMACVerifier("secret-b")
	if _, err := v.Verify(t.Context(), tok); err == nil {
		t.Fatal("expected verification failure with mismatched secret")
	}
}

func TestMiddleware_RequireRejectsMissingToken(t *testing.T) {
	v := NewHMACVerifier("s")
	h := Middleware(v, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_AttachesPrincipal(t *testing.T) {
	issuer := NewIssuer("s", time.Hour)
	tok, _ := issuer.Issue("user-2", "", []string{"query:read"}, "")
	v := NewHMACVerifier("s")

	var seen *Principal
	h := Middleware(v, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.Subject != "user-2" {
		t.Fatalf("expected principal attached, got %+v", seen)
	}
}

func TestRequireScope_Forbidden(t *testing.T) {
	h := RequireScope("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{Subject: "u", Scopes: []string{"read"}}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
