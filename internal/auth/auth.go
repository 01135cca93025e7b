// Package auth resolves the authorized organization context of a request
// from a signed bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/httpx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type ctxKey int

const principalCtxKey ctxKey = iota

// Subject identifies a caller within a tenant.
type Subject struct {
	OrganizationID uint
	UserID         uint
}

// Principal is the authorized organization context: who is calling, for
// which organization, with which capabilities.
type Principal struct {
	Subject
	Capabilities gate.Capabilities
}

// Claims is the JWT payload. The subject claim carries the user id.
type Claims struct {
	OrganizationID uint     `json:"org"`
	Capabilities   []string `json:"caps"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokens creates a token service. The secret must not be empty.
func NewTokens(secret, issuer string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a token for p.
func (t *Tokens) Issue(p Principal) (string, error) {
	if p.OrganizationID == 0 || p.UserID == 0 {
		return "", errors.New("principal needs an organization and a user")
	}
	now := time.Now()
	claims := Claims{
		OrganizationID: p.OrganizationID,
		Capabilities:   p.Capabilities.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies a token and returns its principal.
func (t *Tokens) Parse(raw string) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 || claims.OrganizationID == 0 {
		return nil, fmt.Errorf("%w: missing organization or subject", ErrInvalidToken)
	}
	return &Principal{
		Subject:      Subject{OrganizationID: claims.OrganizationID, UserID: uint(userID)},
		Capabilities: gate.ParseCapabilities(claims.Capabilities),
	}, nil
}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// FromContext extracts the principal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(*Principal)
	return p, ok && p != nil
}

// SubjectFromContext returns the caller's subject, or the zero Subject.
func SubjectFromContext(ctx context.Context) Subject {
	if p, ok := FromContext(ctx); ok {
		return p.Subject
	}
	return Subject{}
}

// Middleware attaches the principal to the request context when a valid
// bearer token is present.
func (t *Tokens) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearer(r); ok {
			if p, err := t.Parse(raw); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth returns 401 JSON unless the request carries a principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:]), true
	}
	return "", false
}

// ContextResolver resolves capabilities from the principal in the request
// context. The token is the capability source, so nothing is looked up.
type ContextResolver struct{}

// Resolve implements gate.CapabilityResolver.
func (ContextResolver) Resolve(ctx context.Context, s Subject) (gate.Capabilities, error) {
	p, ok := FromContext(ctx)
	if !ok || p.Subject != s {
		return nil, nil
	}
	return p.Capabilities, nil
}
