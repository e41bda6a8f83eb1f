package nuxt

import (
	"fmt"

	"github.com/hazyhaar/hydrate/devalue"
)

// DefaultStatusCode applies when an error payload carries none.
const DefaultStatusCode = 500

// Error is a revived NuxtError.
type Error struct {
	StatusCode    int
	StatusMessage string
	Message       string
	Data          any
	Fatal         bool
	Unhandled     bool

	raw any // payload as decoded, nil when built by hand
}

func (e *Error) Error() string {
	if e.StatusMessage != "" {
		return fmt.Sprintf("nuxt: %d %s: %s", e.StatusCode, e.StatusMessage, e.Message)
	}
	return fmt.Sprintf("nuxt: %d: %s", e.StatusCode, e.Message)
}

// PlainValue mirrors the object the server serialized. A revived error
// projects its payload as decoded, so defaults such as DefaultStatusCode
// never show up in the plain form.
func (e *Error) PlainValue() any {
	if e.raw != nil {
		return e.raw
	}
	m := map[string]any{
		"statusCode": float64(e.StatusCode),
		"message":    e.Message,
	}
	if e.StatusMessage != "" {
		m["statusMessage"] = e.StatusMessage
	}
	if e.Data != nil {
		m["data"] = e.Data
	}
	if e.Fatal {
		m["fatal"] = true
	}
	if e.Unhandled {
		m["unhandled"] = true
	}
	return m
}

func reviveError(p any) (any, error) {
	e := &Error{StatusCode: DefaultStatusCode, raw: p}
	switch x := p.(type) {
	case string:
		e.Message = x
		return e, nil
	case *devalue.Object:
		if v, ok := x.Get("statusCode"); ok {
			if f, ok := v.(float64); ok {
				e.StatusCode = int(f)
			}
		}
		e.StatusMessage = str(x, "statusMessage")
		e.Message = str(x, "message")
		if v, ok := x.Get("data"); ok {
			if _, undef := v.(devalue.Undefined); !undef {
				e.Data = v
			}
		}
		e.Fatal = flag(x, "fatal")
		e.Unhandled = flag(x, "unhandled")
		return e, nil
	}
	return nil, fmt.Errorf("nuxt: error payload is %T, want object", p)
}

func str(o *devalue.Object, key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

func flag(o *devalue.Object, key string) bool {
	v, _ := o.Get(key)
	b, _ := v.(bool)
	return b
}
