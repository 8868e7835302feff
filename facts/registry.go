package facts

import (
	"context"
	"fmt"

	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/ledger"
)

// Resolver computes a single fact's value for the event currently being
// evaluated. Resolvers that only need input fields ignore store; the
// consumer-backed ones call its methods, so they need a non-nil store.
type Resolver func(ctx context.Context, in events.Input, store ledger.Store) (Value, error)

// Registry holds the fixed catalog of fact resolvers (SPEC_FULL.md §4.2
// table). It is built once at startup and shared across evaluations;
// per-evaluation state lives in Bindings, not here.
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry builds the registry with every fact resolver from resolvers.go
// registered under its spec name.
func NewRegistry() *Registry {
	r := &Registry{resolvers: make(map[string]Resolver)}
	registerDefaults(r)
	return r
}

// Register adds or overrides a resolver for fact name.
func (r *Registry) Register(name string, fn Resolver) {
	r.resolvers[name] = fn
}

// Has reports whether name is a registered fact.
func (r *Registry) Has(name string) bool {
	_, ok := r.resolvers[name]
	return ok
}

// Bind attaches the registry to one event evaluation, returning a Bindings
// that memoizes resolver calls for that evaluation only (SPEC_FULL.md §4.2:
// "scoped to one event evaluation; not shared across events").
func (r *Registry) Bind(in events.Input, store ledger.Store) *Bindings {
	return &Bindings{
		registry: r,
		input:    in,
		store:    store,
		cache:    make(map[string]Value),
	}
}

// Bindings is the per-evaluation memoization cache over a Registry.
type Bindings struct {
	registry *Registry
	input    events.Input
	store    ledger.Store
	cache    map[string]Value
}

// Resolve returns the value of fact name, invoking its resolver at most once
// per Bindings lifetime. An unregistered fact name is an error the caller
// (the rule engine) turns into an UnknownFactError and a skipped rule.
func (b *Bindings) Resolve(ctx context.Context, name string) (Value, error) {
	if v, ok := b.cache[name]; ok {
		return v, nil
	}
	fn, ok := b.registry.resolvers[name]
	if !ok {
		return Null, fmt.Errorf("unknown fact %q", name)
	}
	v, err := fn(ctx, b.input, b.store)
	if err != nil {
		return Null, err
	}
	b.cache[name] = v
	return v, nil
}

// Has reports whether name is a fact this Bindings' registry can resolve.
func (b *Bindings) Has(name string) bool { return b.registry.Has(name) }
