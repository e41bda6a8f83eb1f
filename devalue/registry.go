package devalue

import (
	"fmt"
	"sort"
)

// Reviver rebuilds one tagged value kind from its decoded payload.
// Revive may run while the rest of the graph is still being built, so it
// must not mutate payload or depend on state outside it.
type Reviver interface {
	Name() string
	Revive(payload any) (any, error)
}

// ReviverFunc adapts a function to the revive half of Reviver.
type ReviverFunc func(payload any) (any, error)

type namedReviver struct {
	name string
	fn   ReviverFunc
}

func (r namedReviver) Name() string                    { return r.name }
func (r namedReviver) Revive(payload any) (any, error) { return r.fn(payload) }

// Named returns a Reviver for tag name backed by fn.
func Named(name string, fn ReviverFunc) Reviver {
	return namedReviver{name: name, fn: fn}
}

// Registry maps tag names to revivers. Names are case-sensitive and unique.
// Registries are built per consumer and passed to each Parse call; there is
// no global registry. A Registry is safe for concurrent reads once built.
type Registry struct {
	revivers map[string]Reviver
}

// NewRegistry returns a registry holding revivers.
func NewRegistry(revivers ...Reviver) (*Registry, error) {
	r := &Registry{revivers: make(map[string]Reviver, len(revivers))}
	for _, rv := range revivers {
		if err := r.Register(rv); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error, for static tables.
func MustRegistry(revivers ...Reviver) *Registry {
	r, err := NewRegistry(revivers...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds rv. Empty and duplicate names are rejected.
func (r *Registry) Register(rv Reviver) error {
	name := rv.Name()
	if name == "" {
		return fmt.Errorf("devalue: reviver name must not be empty")
	}
	if _, ok := r.revivers[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateReviver, name)
	}
	r.revivers[name] = rv
	return nil
}

// Lookup returns the reviver for name. A nil registry holds nothing.
func (r *Registry) Lookup(name string) (Reviver, bool) {
	if r == nil {
		return nil, false
	}
	rv, ok := r.revivers[name]
	return rv, ok
}

// Names returns the registered tag names in lexical order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.revivers))
	for n := range r.revivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy that can be extended without touching r.
func (r *Registry) Clone() *Registry {
	c := &Registry{revivers: make(map[string]Reviver)}
	if r != nil {
		for n, rv := range r.revivers {
			c.revivers[n] = rv
		}
	}
	return c
}
