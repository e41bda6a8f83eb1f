// CLAUDE:SUMMARY Finds the hydration payload <script> element in server-rendered HTML for either delivery mode.
// Package locate finds the element carrying the serialized hydration state
// in a server-rendered HTML document.
package locate

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/hydrate/attrs"
)

// Mode selects how the server delivered the payload.
type Mode string

const (
	// ModeScript: an inline <script> assigning the state global.
	ModeScript Mode = "js"
	// ModeDataIsland: a <script type="application/json"> data island.
	ModeDataIsland Mode = "json"
)

const (
	// MarkerAttr identifies the data-island element. The encoder writes the
	// same attribute.
	MarkerAttr = "data-nuxt-data"

	// GlobalMarker is the expression a script-mode payload body starts with.
	GlobalMarker = "window.__NUXT__"

	jsonType = "application/json"
)

// ErrPayloadNotFound is returned when the document has no element matching
// the requested mode.
var ErrPayloadNotFound = errors.New("locate: payload element not found")

// Payload is a located payload element.
type Payload struct {
	Text   string    // body of the element, verbatim
	Attrs  attrs.Map // start tag attributes; empty in script mode
	Offset int       // byte offset of Text within the document
}

// ParseMode maps "js" and "json" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeScript:
		return ModeScript, nil
	case ModeDataIsland:
		return ModeDataIsland, nil
	}
	return "", fmt.Errorf("locate: unknown mode %q (want js or json)", s)
}

// Locate returns the first payload element for mode.
func Locate(document string, mode Mode) (*Payload, error) {
	var found *Payload
	err := scan(document, mode, func(p *Payload) bool {
		found = p
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w (mode %s)", ErrPayloadNotFound, mode)
	}
	return found, nil
}

// LocateAll returns every payload element for mode in document order.
// Decoding uses only the first one; the rest are useful for diagnostics.
func LocateAll(document string, mode Mode) ([]*Payload, error) {
	var all []*Payload
	err := scan(document, mode, func(p *Payload) bool {
		all = append(all, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w (mode %s)", ErrPayloadNotFound, mode)
	}
	return all, nil
}

// scan walks the script elements of document and calls yield for each one
// matching mode until yield returns false.
func scan(document string, mode Mode, yield func(*Payload) bool) error {
	if mode != ModeScript && mode != ModeDataIsland {
		return fmt.Errorf("locate: unknown mode %q", mode)
	}

	z := html.NewTokenizer(strings.NewReader(document))
	offset := 0
	for {
		tt := z.Next()
		raw := z.Raw()
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return fmt.Errorf("locate: tokenize: %w", z.Err())

		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "script" {
				continue
			}
			tagAttrs := attrs.Parse(attrText(string(raw)))

			// Script contents are raw text: the next token is either the
			// body or the end tag of an empty element.
			body := ""
			bodyOffset := offset
			if z.Next() == html.TextToken {
				body = string(z.Raw())
			}
			offset += len(z.Raw())

			p, ok := match(mode, tagAttrs, body)
			if !ok {
				continue
			}
			p.Offset = bodyOffset
			if !yield(p) {
				return nil
			}
		}
	}
}

func match(mode Mode, tagAttrs attrs.Map, body string) (*Payload, bool) {
	typ := strings.ToLower(tagAttrs["type"])
	switch mode {
	case ModeDataIsland:
		if typ != jsonType {
			return nil, false
		}
		if _, ok := tagAttrs[MarkerAttr]; !ok {
			return nil, false
		}
		return &Payload{Text: body, Attrs: tagAttrs}, true

	case ModeScript:
		if !isJavaScriptType(typ) {
			return nil, false
		}
		if _, ok := tagAttrs["src"]; ok {
			return nil, false
		}
		if !strings.HasPrefix(strings.TrimLeft(body, " \t\r\n"), GlobalMarker) {
			return nil, false
		}
		return &Payload{Text: body, Attrs: attrs.Map{}}, true
	}
	return nil, false
}

func isJavaScriptType(typ string) bool {
	switch typ {
	case "", "text/javascript", "application/javascript":
		return true
	}
	return false
}

// attrText strips "<script" and the closing ">" from a raw start tag.
func attrText(raw string) string {
	s := strings.TrimPrefix(raw, "<")
	if i := strings.IndexAny(s, " \t\r\n\f/>"); i >= 0 {
		s = s[i:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(s, ">")
	s = strings.TrimSuffix(s, "/")
	return s
}
