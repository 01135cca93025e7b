// Package policy wires the gate to the organization context of a request.
package policy

import (
	"context"
	"net/http"

	"github.com/diewo77/gst-ledger/internal/auth"
	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/httpx"
)

// Resource types checked by the gate.
const (
	ResourceInvoice = "invoice"
	ResourcePayment = "payment"
	ResourceTax     = "tax"
)

// AuthGate is the central authorization point of the HTTP layer.
type AuthGate struct {
	Gate *gate.Gate[auth.Subject]
}

// NewAuthGate creates a gate whose capabilities come from the request's
// principal, with tenant ownership registered for invoices and payments.
func NewAuthGate() *AuthGate {
	return NewAuthGateWithResolver(auth.ContextResolver{})
}

// NewAuthGateWithResolver is NewAuthGate with a custom capability source.
func NewAuthGateWithResolver(resolver gate.CapabilityResolver[auth.Subject]) *AuthGate {
	g := gate.New[auth.Subject](resolver)
	tenant := NewTenantPolicy()
	g.Register(ResourceInvoice, tenant)
	g.Register(ResourcePayment, tenant)
	return &AuthGate{Gate: g}
}

// Authorize checks whether the caller may perform action on resource.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	return ag.Gate.Authorize(ctx, auth.SubjectFromContext(ctx), action, resourceType, resource)
}

// Can is Authorize returning a bool.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// RequirePermission returns middleware that checks the caller's capability
// for resourceType:action before the handler runs.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == (auth.Subject{}) {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.Gate.Allowed(r.Context(), subject, action, resourceType) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", gate.NewPermission(resourceType, action))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
