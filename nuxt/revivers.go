// CLAUDE:SUMMARY Reviver set for Nuxt payloads: refs, reactive wrappers, NuxtError and island keys.
// Package nuxt provides the revivers a Nuxt hydration payload needs.
//
// Reactive wrappers have no runtime meaning in Go; they are kept as thin
// typed wrappers so callers can tell a ref from a plain value, and they
// project to their contents in devalue.Plain.
package nuxt

import (
	"fmt"
	"math/big"

	"github.com/hazyhaar/hydrate/devalue"
)

// Tag names emitted by the Nuxt payload encoder.
const (
	TagError           = "NuxtError"
	TagEmptyShallowRef = "EmptyShallowRef"
	TagEmptyRef        = "EmptyRef"
	TagShallowRef      = "ShallowRef"
	TagShallowReactive = "ShallowReactive"
	TagRef             = "Ref"
	TagReactive        = "Reactive"
	TagIsland          = "Island"
)

// Ref is a revived ref or shallowRef.
type Ref struct {
	Value   any
	Shallow bool
}

func (r *Ref) PlainValue() any { return r.Value }

// Reactive is a revived reactive or shallowReactive object.
type Reactive struct {
	Target  any
	Shallow bool
}

func (r *Reactive) PlainValue() any { return r.Target }

// Revivers returns a new registry with every Nuxt tag.
func Revivers() *devalue.Registry {
	return devalue.MustRegistry(
		devalue.Named(TagError, reviveError),
		devalue.Named(TagEmptyShallowRef, emptyRef(true)),
		devalue.Named(TagEmptyRef, emptyRef(false)),
		devalue.Named(TagShallowRef, func(p any) (any, error) { return &Ref{Value: p, Shallow: true}, nil }),
		devalue.Named(TagShallowReactive, func(p any) (any, error) { return &Reactive{Target: p, Shallow: true}, nil }),
		devalue.Named(TagRef, func(p any) (any, error) { return &Ref{Value: p}, nil }),
		devalue.Named(TagReactive, func(p any) (any, error) { return &Reactive{Target: p}, nil }),
		// The island key is passed through untouched.
		devalue.Named(TagIsland, func(key any) (any, error) { return key, nil }),
	)
}

// WithRevivers returns the Nuxt registry extended with extra, for
// application-defined payload types.
func WithRevivers(extra ...devalue.Reviver) (*devalue.Registry, error) {
	reg := Revivers()
	for _, rv := range extra {
		if err := reg.Register(rv); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// emptyRef revives refs whose falsy value was inlined as a JSON string.
// "_" stands for undefined and "0n" for a zero BigInt.
func emptyRef(shallow bool) devalue.ReviverFunc {
	return func(p any) (any, error) {
		s, ok := p.(string)
		if !ok {
			return nil, fmt.Errorf("nuxt: empty ref payload is %T, want string", p)
		}
		var v any
		switch s {
		case "_":
			v = devalue.Undefined{}
		case "0n":
			v = new(big.Int)
		default:
			var err error
			if v, err = devalue.ParseJSON(s); err != nil {
				return nil, fmt.Errorf("nuxt: empty ref: %w", err)
			}
		}
		return &Ref{Value: v, Shallow: shallow}, nil
	}
}
