// Package gate decides whether a subject may perform an action on a
// resource type. A subject's capabilities come from a resolver; resource
// policies then check the specific record, typically tenant ownership.
//
// The package has no dependency on the ledger models. The subject type is
// generic so any comparable key can be used:
//   - Gate[uint] for a plain user id
//   - Gate[auth.Subject] for an organization-scoped caller
package gate

import "context"

// Gate combines capability checks with resource-specific policies.
// Authorization flow:
//  1. the subject must be non-zero
//  2. the subject's capabilities must include resource:action
//  3. if a policy is registered for the resource type and a resource is
//     given, the policy must allow it
type Gate[U comparable] struct {
	resolver CapabilityResolver[U]
	policies map[string]Policy[U]
}

// New creates a gate over the given resolver.
func New[U comparable](resolver CapabilityResolver[U]) *Gate[U] {
	return &Gate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register adds the policy for a resource type, replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns ErrUnauthorized for a zero subject and ErrForbidden
// when a capability or policy check fails.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resourceType string, resource any) error {
	var zero U
	if subject == zero {
		return ErrUnauthorized
	}
	if !g.Allowed(ctx, subject, action, resourceType) {
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	if p, ok := g.policies[resourceType]; ok && !p.Can(ctx, subject, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}

// Allowed checks only the capability, without any resource policy.
// Route middleware uses it before the resource is loaded.
func (g *Gate[U]) Allowed(ctx context.Context, subject U, action Action, resourceType string) bool {
	var zero U
	if subject == zero {
		return false
	}
	caps, err := g.resolver.Resolve(ctx, subject)
	if err != nil {
		return false
	}
	return caps.Allows(NewPermission(resourceType, action))
}
