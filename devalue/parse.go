// CLAUDE:SUMMARY Decodes devalue payloads (flat JSON node table with back-references and tagged nodes) into Go values.
// Package devalue decodes the tagged value text carried by hydration data
// islands.
//
// The payload is a JSON array. Slot 0 is the root; every other slot holds
// one node. Inside arrays and objects integers are slot references, and
// negative integers stand for constants (undefined, holes, NaN, ±Inf, -0).
// An array whose first element is a string is a tagged node: the string
// names a reviver from the caller's Registry or a built-in type.
//
// Nodes are visited depth-first from slot 0 and appended to a node table in
// that order. A reference either points back into the table, yielding the
// very same value, or names the next slot to visit. Anything further ahead
// is rejected. Containers enter the table before their children are
// decoded, so cycles close on the container itself.
package devalue

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Negative references.
const (
	refUndefined = -1
	refHole      = -2
	refNaN       = -3
	refPosInf    = -4
	refNegInf    = -5
	refNegZero   = -6
)

// maxDepth bounds how deep containers and tagged nodes may nest, both in
// the node graph and in the JSON text itself.
const maxDepth = 10_000

type decoder struct {
	wire    []gjson.Result
	offsets []int
	table   []any
	pending map[int]struct{}
	reg     *Registry
	depth   int
}

// Parse decodes text, reviving tagged nodes with reg (nil means built-ins
// only). Failures are returned as *DecodeError and no partial value is
// returned.
func Parse(text string, reg *Registry) (any, error) {
	if err := checkNesting(text); err != nil {
		return nil, err
	}
	if !gjson.Valid(text) {
		return nil, malformed(text)
	}
	root := gjson.Parse(text)

	if root.Type == gjson.Number {
		idx, ok := refIndex(root)
		if ok && idx < 0 {
			if c, ok := constant(idx); ok {
				return c, nil
			}
		}
		return nil, &DecodeError{Index: -1, Offset: 0, Msg: "bare number " + root.Raw, Err: ErrInvalidInput}
	}
	if !root.IsArray() {
		return nil, &DecodeError{Index: -1, Offset: 0, Msg: "payload is not an array", Err: ErrInvalidInput}
	}

	d := &decoder{reg: reg}
	d.load(text, root)
	if len(d.wire) == 0 {
		return nil, &DecodeError{Index: -1, Offset: 0, Msg: "empty node table", Err: ErrInvalidInput}
	}
	return d.hydrate(0, -1)
}

// load splits the root array into slots and records where each one starts.
func (d *decoder) load(text string, root gjson.Result) {
	from := strings.IndexByte(text, '[') + 1
	root.ForEach(func(_, v gjson.Result) bool {
		off := strings.Index(text[from:], v.Raw)
		if off < 0 {
			off = -1
		} else {
			off += from
			from = off + len(v.Raw)
		}
		d.wire = append(d.wire, v)
		d.offsets = append(d.offsets, off)
		return true
	})
	d.table = make([]any, 0, len(d.wire))
}

func (d *decoder) ref(v gjson.Result, from int) (any, error) {
	idx, ok := refIndex(v)
	if !ok {
		return nil, d.errorf(from, ErrInvalidInput, "reference %s is not an integer", v.Raw)
	}
	return d.hydrate(idx, from)
}

// hydrate resolves reference idx found while decoding slot from.
func (d *decoder) hydrate(idx, from int) (any, error) {
	if idx < 0 {
		if c, ok := constant(idx); ok {
			return c, nil
		}
		return nil, d.errorf(from, ErrInvalidInput, "unknown constant %d", idx)
	}
	if idx < len(d.table) {
		if _, busy := d.pending[idx]; busy {
			return nil, d.errorf(from, ErrForwardReference, "reference %d to a tagged node that is not revived yet", idx)
		}
		return d.table[idx], nil
	}
	if idx != len(d.table) || idx >= len(d.wire) {
		return nil, d.errorf(from, ErrForwardReference, "reference %d with %d of %d nodes decoded", idx, len(d.table), len(d.wire))
	}

	if d.depth >= maxDepth {
		return nil, d.errorf(from, ErrInvalidInput, "nesting deeper than %d", maxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	d.table = append(d.table, nil)
	v, err := d.node(idx)
	if err != nil {
		return nil, err
	}
	d.table[idx] = v
	return v, nil
}

func (d *decoder) node(idx int) (any, error) {
	n := d.wire[idx]
	switch n.Type {
	case gjson.Null:
		return nil, nil
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.Number:
		return n.Num, nil
	case gjson.String:
		return n.Str, nil
	}

	if n.IsArray() {
		items := n.Array()
		if len(items) > 0 && items[0].Type == gjson.String {
			return d.tagged(idx, items[0].Str, items[1:])
		}
		arr := &Array{Items: make([]any, len(items))}
		d.table[idx] = arr
		for i, it := range items {
			v, err := d.ref(it, idx)
			if err != nil {
				return nil, err
			}
			arr.Items[i] = v
		}
		return arr, nil
	}

	obj := NewObject()
	d.table[idx] = obj
	var err error
	n.ForEach(func(k, v gjson.Result) bool {
		var val any
		if val, err = d.ref(v, idx); err != nil {
			return false
		}
		obj.Set(k.Str, val)
		return true
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *decoder) tagged(idx int, tag string, args []gjson.Result) (any, error) {
	if rv, ok := d.reg.Lookup(tag); ok {
		if len(args) != 1 {
			return nil, d.errorf(idx, ErrInvalidInput, "tag %q takes one payload reference, got %d", tag, len(args))
		}
		if d.pending == nil {
			d.pending = make(map[int]struct{})
		}
		d.pending[idx] = struct{}{}
		payload, err := d.ref(args[0], idx)
		delete(d.pending, idx)
		if err != nil {
			return nil, err
		}
		v, err := rv.Revive(payload)
		if err != nil {
			return nil, d.errorf(idx, err, "revive %q", tag)
		}
		return v, nil
	}

	switch tag {
	case "Date":
		s, err := d.stringArg(idx, tag, args)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, d.errorf(idx, err, "Date")
		}
		return t, nil

	case "Set":
		s := &Set{Items: make([]any, 0, len(args))}
		d.table[idx] = s
		for _, a := range args {
			v, err := d.ref(a, idx)
			if err != nil {
				return nil, err
			}
			s.Items = append(s.Items, v)
		}
		return s, nil

	case "Map":
		if len(args)%2 != 0 {
			return nil, d.errorf(idx, ErrInvalidInput, "Map has an odd number of entries")
		}
		m := &Map{Entries: make([]MapEntry, 0, len(args)/2)}
		d.table[idx] = m
		for i := 0; i < len(args); i += 2 {
			k, err := d.ref(args[i], idx)
			if err != nil {
				return nil, err
			}
			v, err := d.ref(args[i+1], idx)
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, MapEntry{Key: k, Value: v})
		}
		return m, nil

	case "RegExp":
		src, err := d.stringArg(idx, tag, args)
		if err != nil {
			return nil, err
		}
		re := &RegExp{Source: src}
		if len(args) > 1 {
			re.Flags = args[1].Str
		}
		return re, nil

	case "Object":
		// Boxed primitive: the payload is a literal, not a reference.
		if len(args) != 1 {
			return nil, d.errorf(idx, ErrInvalidInput, "Object takes one literal")
		}
		switch args[0].Type {
		case gjson.String:
			return args[0].Str, nil
		case gjson.Number:
			return args[0].Num, nil
		case gjson.True, gjson.False:
			return args[0].Bool(), nil
		}
		return nil, d.errorf(idx, ErrInvalidInput, "Object literal %s", args[0].Raw)

	case "BigInt":
		s, err := d.stringArg(idx, tag, args)
		if err != nil {
			return nil, err
		}
		b, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, d.errorf(idx, ErrInvalidInput, "BigInt %q", s)
		}
		return b, nil

	case "null":
		// Null-prototype object: literal keys alternating with references.
		if len(args)%2 != 0 {
			return nil, d.errorf(idx, ErrInvalidInput, "null-prototype object has an odd number of entries")
		}
		obj := NewObject()
		d.table[idx] = obj
		for i := 0; i < len(args); i += 2 {
			v, err := d.ref(args[i+1], idx)
			if err != nil {
				return nil, err
			}
			obj.Set(args[i].String(), v)
		}
		return obj, nil

	case "URL":
		s, err := d.stringArg(idx, tag, args)
		if err != nil {
			return nil, err
		}
		u, err := url.Parse(s)
		if err != nil {
			return nil, d.errorf(idx, err, "URL")
		}
		return u, nil

	case "URLSearchParams":
		s, err := d.stringArg(idx, tag, args)
		if err != nil {
			return nil, err
		}
		q, err := url.ParseQuery(s)
		if err != nil {
			return nil, d.errorf(idx, err, "URLSearchParams")
		}
		return q, nil
	}

	return nil, d.errorf(idx, &UnknownTagError{Tag: tag}, "")
}

func (d *decoder) stringArg(idx int, tag string, args []gjson.Result) (string, error) {
	if len(args) == 0 || args[0].Type != gjson.String {
		return "", d.errorf(idx, ErrInvalidInput, "%s needs a string argument", tag)
	}
	return args[0].Str, nil
}

func (d *decoder) errorf(slot int, err error, format string, args ...any) *DecodeError {
	off := -1
	if slot >= 0 && slot < len(d.offsets) {
		off = d.offsets[slot]
	}
	return &DecodeError{Index: slot, Offset: off, Msg: fmt.Sprintf(format, args...), Err: err}
}

// refIndex reports the integer held by v, if any.
func refIndex(v gjson.Result) (int, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	f := v.Num
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func constant(idx int) (any, bool) {
	switch idx {
	case refUndefined, refHole:
		return Undefined{}, true
	case refNaN:
		return math.NaN(), true
	case refPosInf:
		return math.Inf(1), true
	case refNegInf:
		return math.Inf(-1), true
	case refNegZero:
		return math.Copysign(0, -1), true
	}
	return nil, false
}

// checkNesting rejects text whose brackets nest deeper than maxDepth,
// ignoring brackets inside strings. It runs before any recursive walk.
func checkNesting(text string) error {
	depth, inStr, esc := 0, false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inStr:
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '[' || c == '{':
			if depth++; depth > maxDepth {
				return &DecodeError{Index: -1, Offset: i, Msg: fmt.Sprintf("JSON nested deeper than %d", maxDepth), Err: ErrInvalidInput}
			}
		case c == ']' || c == '}':
			depth--
		}
	}
	return nil
}

// malformed builds the DecodeError for text that is not valid JSON, using
// the standard library's syntax error for the offset.
func malformed(text string) error {
	off := -1
	var v any
	var se *json.SyntaxError
	if err := json.Unmarshal([]byte(text), &v); errors.As(err, &se) {
		off = int(se.Offset)
	}
	return &DecodeError{Index: -1, Offset: off, Msg: "malformed JSON", Err: ErrInvalidInput}
}
