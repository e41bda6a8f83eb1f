package devalue

import "fmt"

// Undefined is the decoded form of JavaScript's undefined (and of array holes).
type Undefined struct{}

func (Undefined) String() string { return "undefined" }

// Array is a decoded array. It is a pointer type so that shared and cyclic
// references decode to the same instance.
type Array struct {
	Items []any
}

// Object is a decoded plain object. Key order follows the payload.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set stores v under key, keeping the key's first position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

func (o *Object) String() string { return fmt.Sprintf("Object(%d keys)", len(o.keys)) }

// Set is a decoded JavaScript Set.
type Set struct {
	Items []any
}

// Map is a decoded JavaScript Map. Entries keep insertion order.
type Map struct {
	Entries []MapEntry
}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// RegExp is a decoded regular expression literal.
type RegExp struct {
	Source string
	Flags  string
}

func (r *RegExp) String() string { return "/" + r.Source + "/" + r.Flags }
