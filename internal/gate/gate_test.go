package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/gst-ledger/internal/gate"
)

type tenant struct {
	org  uint
	user uint
}

type record struct {
	OrgID uint
}

// sameTenant allows records of the subject's organization.
var sameTenant = gate.PolicyFunc[tenant](func(_ context.Context, s tenant, _ gate.Action, resource any) bool {
	r, ok := resource.(*record)
	return ok && r.OrgID == s.org
})

func TestGate_CapabilityOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[tenant]()
	clerk := tenant{org: 1, user: 10}
	resolver.Set(clerk,
		gate.NewPermission("invoice", gate.ActionCreate),
		gate.NewPermission("invoice", gate.ActionView),
	)
	g := gate.New[tenant](resolver)
	ctx := context.Background()

	if !g.Can(ctx, clerk, gate.ActionCreate, "invoice", nil) {
		t.Error("subject with capability should be allowed")
	}
	if g.Can(ctx, clerk, gate.ActionFinalize, "invoice", nil) {
		t.Error("subject without capability should be denied")
	}
	if g.Can(ctx, tenant{org: 1, user: 11}, gate.ActionView, "invoice", nil) {
		t.Error("subject without capabilities should be denied")
	}
	if err := g.Authorize(ctx, tenant{}, gate.ActionView, "invoice", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("zero subject: got %v, want ErrUnauthorized", err)
	}
	if err := g.Authorize(ctx, clerk, gate.ActionCancel, "invoice", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("missing capability: got %v, want ErrForbidden", err)
	}
}

func TestGate_WithTenantPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[tenant]()
	a := tenant{org: 1, user: 10}
	b := tenant{org: 2, user: 20}
	resolver.Set(a, "payment:*")
	resolver.Set(b, "payment:*")

	g := gate.New[tenant](resolver)
	g.Register("payment", sameTenant)
	ctx := context.Background()
	rec := &record{OrgID: 1}

	if !g.Can(ctx, a, gate.ActionReverse, "payment", rec) {
		t.Error("same tenant should be allowed")
	}
	if g.Can(ctx, b, gate.ActionReverse, "payment", rec) {
		t.Error("other tenant should be denied even with the capability")
	}
	if !g.Can(ctx, b, gate.ActionList, "payment", nil) {
		t.Error("policies are not consulted without a resource")
	}
}

func TestGate_Allowed(t *testing.T) {
	resolver := gate.NewStaticResolver[tenant]()
	s := tenant{org: 1, user: 1}
	resolver.Set(s, "*:view")
	g := gate.New[tenant](resolver)
	g.Register("invoice", sameTenant)
	ctx := context.Background()

	if !g.Allowed(ctx, s, gate.ActionView, "invoice") {
		t.Error("*:view should allow invoice:view")
	}
	if g.Allowed(ctx, s, gate.ActionUpdate, "invoice") {
		t.Error("*:view should not allow invoice:update")
	}
	if g.Allowed(ctx, tenant{}, gate.ActionView, "invoice") {
		t.Error("zero subject is never allowed")
	}
}

func TestGate_ResolverError(t *testing.T) {
	failing := gate.ResolverFunc[uint](func(context.Context, uint) (gate.Capabilities, error) {
		return nil, errors.New("boom")
	})
	g := gate.New[uint](failing)
	if g.Can(context.Background(), 1, gate.ActionView, "invoice", nil) {
		t.Error("resolver errors must deny")
	}
}
