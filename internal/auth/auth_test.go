package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/golang-jwt/jwt/v5"
)

func newTokens(t *testing.T) *Tokens {
	t.Helper()
	tok, err := NewTokens("test-secret", "gst-ledger", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestIssueAndParse(t *testing.T) {
	tok := newTokens(t)
	raw, err := tok.Issue(Principal{
		Subject:      Subject{OrganizationID: 3, UserID: 9},
		Capabilities: gate.Capabilities{"invoice:*", "payment:record"},
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := tok.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.OrganizationID != 3 || p.UserID != 9 {
		t.Errorf("subject = %+v", p.Subject)
	}
	if !p.Capabilities.Allows("invoice:finalize") || p.Capabilities.Allows("payment:reverse") {
		t.Errorf("capabilities = %v", p.Capabilities)
	}
}

func TestParseRejects(t *testing.T) {
	tok := newTokens(t)
	other, _ := NewTokens("other-secret", "gst-ledger", time.Hour)
	foreign, _ := other.Issue(Principal{Subject: Subject{OrganizationID: 1, UserID: 1}})

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OrganizationID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "gst-ledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret"))

	noOrg, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "gst-ledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("test-secret"))

	for name, raw := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"expired":      expired,
		"no org":       noOrg,
	} {
		if _, err := tok.Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: got %v, want ErrInvalidToken", name, err)
		}
	}

	if _, err := tok.Issue(Principal{}); err == nil {
		t.Error("issuing for an empty principal should fail")
	}
	if _, err := NewTokens("", "", 0); err == nil {
		t.Error("empty secret should be rejected")
	}
}

func TestMiddlewareAndRequireAuth(t *testing.T) {
	tok := newTokens(t)
	raw, _ := tok.Issue(Principal{Subject: Subject{OrganizationID: 2, UserID: 5}, Capabilities: gate.Capabilities{"*:*"}})

	var seen Subject
	h := tok.Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || seen != (Subject{OrganizationID: 2, UserID: 5}) {
		t.Fatalf("authorized request: %d %+v", rr.Code, seen)
	}

	for _, header := range []string{"", "Bearer nope", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status %d, want 401", header, rr.Code)
		}
	}
}

func TestContextResolver(t *testing.T) {
	p := &Principal{Subject: Subject{OrganizationID: 1, UserID: 2}, Capabilities: gate.Capabilities{"invoice:view"}}
	ctx := WithPrincipal(context.Background(), p)

	caps, _ := ContextResolver{}.Resolve(ctx, p.Subject)
	if !caps.Allows("invoice:view") {
		t.Error("expected principal capabilities")
	}
	caps, _ = ContextResolver{}.Resolve(ctx, Subject{OrganizationID: 1, UserID: 3})
	if len(caps) != 0 {
		t.Error("another subject must not borrow the principal's capabilities")
	}
	caps, _ = ContextResolver{}.Resolve(context.Background(), p.Subject)
	if len(caps) != 0 {
		t.Error("no principal, no capabilities")
	}
}
