// CLAUDE:SUMMARY Parses key="value" attribute runs taken from a single trusted HTML start tag.
// Package attrs extracts attribute maps from the raw attribute text of one
// HTML start tag.
//
// It is not an HTML attribute parser. The input comes from a trusted encoder,
// so only the shape that encoder emits is recognised: a word/hyphen name, an
// equals sign and a double-quoted value without embedded quotes. The value
// may be empty. Entities and escapes are left untouched. Anything else is
// skipped.
package attrs

import (
	"regexp"
	"sort"
)

var tokenRe = regexp.MustCompile(`(?:^|\s)([\w-]+)="([^"]*)"`)

// Map holds attribute values by name.
type Map map[string]string

// Parse returns the attributes found in s. Malformed fragments are ignored
// and the last occurrence of a duplicated name wins. Parse never returns nil.
func Parse(s string) Map {
	m := make(Map)
	for _, sub := range tokenRe.FindAllStringSubmatch(s, -1) {
		m[sub[1]] = sub[2]
	}
	return m
}

// Get returns the value for key and whether it was present.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the attribute names in lexical order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
