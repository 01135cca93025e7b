package policy_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/gst-ledger/internal/auth"
	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/policy"
)

type untenanted struct {
	ID uint
}

func TestTenantPolicy_NilResource(t *testing.T) {
	p := policy.NewTenantPolicy()
	if !p.Can(context.Background(), auth.Subject{OrganizationID: 1, UserID: 1}, gate.ActionList, nil) {
		t.Error("Expected Can to return true for nil resource")
	}
}

func TestTenantPolicy_SameOrganization(t *testing.T) {
	p := policy.NewTenantPolicy()
	inv := &models.Invoice{OrganizationID: 7}

	if !p.Can(context.Background(), auth.Subject{OrganizationID: 7, UserID: 2}, gate.ActionView, inv) {
		t.Error("Expected same organization to access its invoice")
	}
	if p.Can(context.Background(), auth.Subject{OrganizationID: 8, UserID: 2}, gate.ActionView, inv) {
		t.Error("Expected other organization to be denied")
	}
}

func TestTenantPolicy_NotTenanted(t *testing.T) {
	p := policy.NewTenantPolicy()
	if p.Can(context.Background(), auth.Subject{OrganizationID: 1, UserID: 1}, gate.ActionView, &untenanted{ID: 1}) {
		t.Error("Expected resources without an organization to be denied")
	}
}

func TestAuthGate_Authorize(t *testing.T) {
	ag := policy.NewAuthGate()
	principal := &auth.Principal{
		Subject:      auth.Subject{OrganizationID: 3, UserID: 4},
		Capabilities: gate.Capabilities{"invoice:*", "payment:list"},
	}
	ctx := auth.WithPrincipal(context.Background(), principal)

	if err := ag.Authorize(ctx, gate.ActionFinalize, policy.ResourceInvoice, &models.Invoice{OrganizationID: 3}); err != nil {
		t.Errorf("expected access, got %v", err)
	}
	if err := ag.Authorize(ctx, gate.ActionView, policy.ResourceInvoice, &models.Invoice{OrganizationID: 9}); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("foreign invoice: got %v, want ErrForbidden", err)
	}
	if ag.Can(ctx, gate.ActionRecord, policy.ResourcePayment, nil) {
		t.Error("payment:record was not granted")
	}
	if err := ag.Authorize(context.Background(), gate.ActionView, policy.ResourceInvoice, nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("anonymous: got %v, want ErrUnauthorized", err)
	}
}

func TestAuthGate_RequirePermission(t *testing.T) {
	ag := policy.NewAuthGate()
	h := ag.RequirePermission(policy.ResourcePayment, gate.ActionReverse)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		caps gate.Capabilities
		anon bool
		want int
	}{
		{"anonymous", nil, true, http.StatusUnauthorized},
		{"missing capability", gate.Capabilities{"payment:record"}, false, http.StatusForbidden},
		{"resource wildcard", gate.Capabilities{"payment:*"}, false, http.StatusNoContent},
		{"superuser", gate.Capabilities{gate.PermissionAll}, false, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/payments/1", nil)
			if !tt.anon {
				p := &auth.Principal{Subject: auth.Subject{OrganizationID: 1, UserID: 1}, Capabilities: tt.caps}
				req = req.WithContext(auth.WithPrincipal(req.Context(), p))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
