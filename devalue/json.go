package devalue

import "github.com/tidwall/gjson"

// ParseJSON decodes plain JSON into the same value model Parse produces:
// objects become *Object with their key order kept, arrays become *Array.
// Revivers use it for payloads that carry a JSON string.
func ParseJSON(text string) (any, error) {
	if err := checkNesting(text); err != nil {
		return nil, err
	}
	if !gjson.Valid(text) {
		return nil, malformed(text)
	}
	return fromJSON(gjson.Parse(text)), nil
}

func fromJSON(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num
	case gjson.String:
		return r.Str
	}
	if r.IsArray() {
		items := r.Array()
		arr := &Array{Items: make([]any, len(items))}
		for i, it := range items {
			arr.Items[i] = fromJSON(it)
		}
		return arr
	}
	obj := NewObject()
	r.ForEach(func(k, v gjson.Result) bool {
		obj.Set(k.Str, fromJSON(v))
		return true
	})
	return obj
}
