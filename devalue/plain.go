package devalue

import (
	"math"
	"math/big"
	"net/url"
	"reflect"
	"time"
)

// Plainer is implemented by revived kinds that want to control how they
// appear in a plain projection. PlainValue may return graph values; they
// are projected in turn.
type Plainer interface {
	PlainValue() any
}

// Plain projects a decoded graph onto map[string]any, []any and scalars so
// it can be marshalled as JSON or compared structurally. Shared sub-graphs
// are duplicated; a cycle yields ErrCyclic.
//
// undefined becomes nil, non-finite numbers become "NaN", "Infinity" and
// "-Infinity", dates become RFC 3339 strings, sets become arrays and maps
// become arrays of [key, value] pairs.
func Plain(v any) (any, error) {
	p := &projector{active: make(map[any]struct{})}
	return p.conv(v)
}

type projector struct {
	active map[any]struct{}
}

func (p *projector) enter(k any) error {
	if _, ok := p.active[k]; ok {
		return ErrCyclic
	}
	p.active[k] = struct{}{}
	return nil
}

func (p *projector) leave(k any) { delete(p.active, k) }

func (p *projector) conv(v any) (any, error) {
	switch x := v.(type) {
	case nil, Undefined:
		return nil, nil
	case bool, string:
		return x, nil
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN", nil
		case math.IsInf(x, 1):
			return "Infinity", nil
		case math.IsInf(x, -1):
			return "-Infinity", nil
		}
		return x, nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case *big.Int:
		return x.String(), nil
	case *RegExp:
		return x.String(), nil
	case *url.URL:
		return x.String(), nil
	case url.Values:
		return x.Encode(), nil

	case *Array:
		if err := p.enter(x); err != nil {
			return nil, err
		}
		defer p.leave(x)
		return p.list(x.Items)

	case *Set:
		if err := p.enter(x); err != nil {
			return nil, err
		}
		defer p.leave(x)
		return p.list(x.Items)

	case *Object:
		if err := p.enter(x); err != nil {
			return nil, err
		}
		defer p.leave(x)
		out := make(map[string]any, x.Len())
		for _, k := range x.keys {
			c, err := p.conv(x.values[k])
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil

	case *Map:
		if err := p.enter(x); err != nil {
			return nil, err
		}
		defer p.leave(x)
		out := make([]any, 0, len(x.Entries))
		for _, e := range x.Entries {
			k, err := p.conv(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := p.conv(e.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, []any{k, val})
		}
		return out, nil

	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			c, err := p.conv(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil

	case []any:
		return p.list(x)

	case Plainer:
		if reflect.TypeOf(x).Kind() == reflect.Pointer {
			if err := p.enter(x); err != nil {
				return nil, err
			}
			defer p.leave(x)
		}
		return p.conv(x.PlainValue())
	}
	return v, nil
}

func (p *projector) list(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, it := range items {
		c, err := p.conv(it)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
