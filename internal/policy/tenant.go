package policy

import (
	"context"

	"github.com/diewo77/gst-ledger/internal/auth"
	"github.com/diewo77/gst-ledger/internal/gate"
)

// Tenanted is implemented by records that belong to one organization.
type Tenanted interface {
	GetOrganizationID() uint
}

// TenantPolicy allows access to a record only from its own organization.
type TenantPolicy struct{}

// NewTenantPolicy creates a TenantPolicy.
func NewTenantPolicy() *TenantPolicy {
	return &TenantPolicy{}
}

// Can reports whether subject's organization owns resource. A nil resource
// is allowed since capabilities already guard list and create. Records that
// are not Tenanted are denied.
func (p *TenantPolicy) Can(_ context.Context, subject auth.Subject, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	t, ok := resource.(Tenanted)
	if !ok {
		return false
	}
	return t.GetOrganizationID() == subject.OrganizationID
}
