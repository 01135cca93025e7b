package gate

import (
	"context"
	"sync"
)

// Capabilities is the set of permissions granted to a subject.
type Capabilities []Permission

// ParseCapabilities converts raw strings, dropping malformed entries.
func ParseCapabilities(raw []string) Capabilities {
	caps := make(Capabilities, 0, len(raw))
	for _, s := range raw {
		p := Permission(s)
		if res, act := p.Parse(); res == "" || act == "" {
			continue
		}
		caps = append(caps, p)
	}
	return caps
}

// Allows reports whether any capability matches requested.
func (c Capabilities) Allows(requested Permission) bool {
	for _, p := range c {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// Strings returns the capabilities as plain strings.
func (c Capabilities) Strings() []string {
	out := make([]string, len(c))
	for i, p := range c {
		out[i] = string(p)
	}
	return out
}

// CapabilityResolver returns the capabilities of a subject.
type CapabilityResolver[U any] interface {
	Resolve(ctx context.Context, subject U) (Capabilities, error)
}

// ResolverFunc adapts a function to CapabilityResolver.
type ResolverFunc[U any] func(ctx context.Context, subject U) (Capabilities, error)

// Resolve calls f.
func (f ResolverFunc[U]) Resolve(ctx context.Context, subject U) (Capabilities, error) {
	return f(ctx, subject)
}

// StaticResolver is an in-memory resolver, mostly for tests.
type StaticResolver[U comparable] struct {
	mu   sync.RWMutex
	caps map[U]Capabilities
}

// NewStaticResolver creates an empty StaticResolver.
func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{caps: make(map[U]Capabilities)}
}

// Set assigns capabilities to a subject.
func (r *StaticResolver[U]) Set(subject U, caps ...Permission) {
	r.mu.Lock()
	r.caps[subject] = caps
	r.mu.Unlock()
}

// Resolve returns the subject's capabilities, or none.
func (r *StaticResolver[U]) Resolve(_ context.Context, subject U) (Capabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps[subject], nil
}
