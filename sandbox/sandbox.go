// CLAUDE:SUMMARY Runs legacy inline hydration scripts in a fresh goja runtime and reads back the state global.
// Package sandbox evaluates inline payload scripts (script-execution
// delivery) in an isolated JavaScript runtime.
//
// Each call gets its own goja runtime holding the ECMAScript built-ins and
// the names listed in Context.Globals, nothing else: no require, console,
// timers or host objects. The runtime is dropped when the call returns.
// The value read back is converted into the devalue value model, without
// any reviver dispatch.
package sandbox

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/hazyhaar/hydrate/devalue"
)

const (
	// DefaultTimeout bounds a script run when Context.Timeout is zero.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxItems bounds the length of any array, set or map read back
	// when Context.MaxItems is zero.
	DefaultMaxItems = 1 << 20

	// maxDepth bounds the nesting of the exported value.
	maxDepth = 10_000
)

var (
	// ErrNoResult is returned when the script never assigned the result.
	ErrNoResult = errors.New("sandbox: result global was never assigned")

	// ErrTimeout is returned when a script runs past its time limit.
	ErrTimeout = errors.New("sandbox: script timed out")

	// ErrTooLarge is returned when the result exceeds MaxItems or nests
	// too deeply.
	ErrTooLarge = errors.New("sandbox: result too large")
)

// EvaluationError wraps every failure of Evaluate.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string { return "sandbox: evaluate: " + e.Err.Error() }
func (e *EvaluationError) Unwrap() error { return e.Err }

// Context is the whole environment a script sees.
type Context struct {
	// Globals are installed as global bindings. map[string]any values become
	// fresh JavaScript objects, so scripts never write into caller memory.
	Globals map[string]any

	// Result is the dotted path read after the script ran.
	Result string

	// Timeout interrupts the script; zero means DefaultTimeout, negative
	// disables the limit. It also covers getters run while reading back.
	Timeout time.Duration

	// MaxItems caps array, set and map lengths in the result; zero means
	// DefaultMaxItems. A script can declare a huge sparse array in constant
	// time, so the declared length is checked before anything is allocated.
	MaxItems int
}

// DefaultContext exposes an empty window object and reads window.__NUXT__.
func DefaultContext() Context {
	return Context{
		Globals: map[string]any{"window": map[string]any{}},
		Result:  "window.__NUXT__",
	}
}

// Evaluate runs script in a new runtime configured by c and returns the
// value found at c.Result.
func Evaluate(script string, c Context) (any, error) {
	if c.Result == "" {
		return nil, &EvaluationError{Err: fmt.Errorf("no result path")}
	}

	vm := goja.New()
	for name, v := range c.Globals {
		if err := vm.Set(name, toJS(vm, v)); err != nil {
			return nil, &EvaluationError{Err: fmt.Errorf("install %q: %w", name, err)}
		}
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() { vm.Interrupt(ErrTimeout) })
		defer timer.Stop()
	}

	if _, err := vm.RunString(script); err != nil {
		return nil, evalError(err)
	}

	maxItems := c.MaxItems
	if maxItems == 0 {
		maxItems = DefaultMaxItems
	}
	return readBack(vm, c.Result, maxItems)
}

// readBack reads and exports the result. Getters and proxies run script
// code here too, so goja panics are turned back into errors.
func readBack(vm *goja.Runtime, path string, maxItems int) (v any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var cause error
		switch x := r.(type) {
		case runtime.Error:
			panic(r)
		case error:
			cause = x
		case interface{ Unwrap() error }:
			// interrupts surface wrapped in an uncatchable exception
			cause = x.Unwrap()
		default:
			panic(r)
		}
		v, err = nil, evalError(cause)
	}()

	res := lookup(vm, path)
	if res == nil || goja.IsUndefined(res) {
		return nil, &EvaluationError{Err: fmt.Errorf("%w: %s", ErrNoResult, path)}
	}

	ex := &exporter{vm: vm, seen: make(map[*goja.Object]any), maxItems: maxItems}
	v, err = ex.conv(res)
	if err != nil {
		return nil, evalError(err)
	}
	return v, nil
}

func evalError(err error) *EvaluationError {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		return &EvaluationError{Err: ErrTimeout}
	}
	return &EvaluationError{Err: err}
}

func toJS(vm *goja.Runtime, v any) goja.Value {
	m, ok := v.(map[string]any)
	if !ok {
		return vm.ToValue(v)
	}
	obj := vm.NewObject()
	for k, e := range m {
		_ = obj.Set(k, toJS(vm, e))
	}
	return obj
}

func lookup(vm *goja.Runtime, path string) goja.Value {
	parts := strings.Split(path, ".")
	v := vm.Get(parts[0])
	for _, p := range parts[1:] {
		obj, ok := v.(*goja.Object)
		if !ok {
			return nil
		}
		v = obj.Get(p)
	}
	return v
}

// exporter converts runtime values, keeping object identity so that shared
// and cyclic structures survive.
type exporter struct {
	vm       *goja.Runtime
	seen     map[*goja.Object]any
	maxItems int
	depth    int
}

func (e *exporter) length(obj *goja.Object) (int, error) {
	n := obj.Get("length").ToInteger()
	if n < 0 || n > int64(e.maxItems) {
		return 0, fmt.Errorf("%w: length %d (max %d)", ErrTooLarge, n, e.maxItems)
	}
	return int(n), nil
}

func (e *exporter) conv(v goja.Value) (any, error) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrTooLarge, maxDepth)
	}

	if v == nil || goja.IsUndefined(v) {
		return devalue.Undefined{}, nil
	}
	if goja.IsNull(v) {
		return nil, nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		switch x := v.Export().(type) {
		case int64:
			return float64(x), nil
		case float64, string, bool, *big.Int:
			return x, nil
		default:
			return nil, fmt.Errorf("sandbox: unsupported primitive %T", x)
		}
	}

	if c, ok := e.seen[obj]; ok {
		return c, nil
	}

	switch obj.ClassName() {
	case "Array":
		n, err := e.length(obj)
		if err != nil {
			return nil, err
		}
		arr := &devalue.Array{Items: make([]any, n)}
		e.seen[obj] = arr
		for i := 0; i < n; i++ {
			c, err := e.conv(obj.Get(strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			arr.Items[i] = c
		}
		return arr, nil

	case "Date":
		if t, ok := obj.Export().(time.Time); ok {
			return t.UTC(), nil
		}

	case "RegExp":
		re := &devalue.RegExp{Source: obj.Get("source").String(), Flags: obj.Get("flags").String()}
		e.seen[obj] = re
		return re, nil

	case "Function":
		return devalue.Undefined{}, nil

	case "Set":
		s := &devalue.Set{}
		e.seen[obj] = s
		items, err := e.entries(obj)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			c, err := e.conv(it)
			if err != nil {
				return nil, err
			}
			s.Items = append(s.Items, c)
		}
		return s, nil

	case "Map":
		m := &devalue.Map{}
		e.seen[obj] = m
		items, err := e.entries(obj)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			pair, ok := it.(*goja.Object)
			if !ok {
				continue
			}
			k, err := e.conv(pair.Get("0"))
			if err != nil {
				return nil, err
			}
			val, err := e.conv(pair.Get("1"))
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, devalue.MapEntry{Key: k, Value: val})
		}
		return m, nil
	}

	out := devalue.NewObject()
	e.seen[obj] = out
	for _, k := range obj.Keys() {
		c, err := e.conv(obj.Get(k))
		if err != nil {
			return nil, err
		}
		out.Set(k, c)
	}
	return out, nil
}

// entries spreads an iterable (Set or Map) through Array.from.
func (e *exporter) entries(obj *goja.Object) ([]goja.Value, error) {
	arrayCtor, ok := e.vm.Get("Array").(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("sandbox: Array constructor replaced")
	}
	from, ok := goja.AssertFunction(arrayCtor.Get("from"))
	if !ok {
		return nil, fmt.Errorf("sandbox: Array.from replaced")
	}
	res, err := from(arrayCtor, obj)
	if err != nil {
		return nil, err
	}
	list, ok := res.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("sandbox: Array.from returned %v", res)
	}
	n, err := e.length(list)
	if err != nil {
		return nil, err
	}
	out := make([]goja.Value, n)
	for i := range out {
		out[i] = list.Get(strconv.Itoa(i))
	}
	return out, nil
}
