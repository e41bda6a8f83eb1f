package attrs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Map
	}{
		{
			name: "two attributes",
			in:   `data-nuxt-data="abc123" data-ssr="true"`,
			want: Map{"data-nuxt-data": "abc123", "data-ssr": "true"},
		},
		{
			name: "leading whitespace",
			in:   `  id="__NUXT_DATA__"`,
			want: Map{"id": "__NUXT_DATA__"},
		},
		{
			name: "malformed trailing fragment",
			in:   `data-ssr="true" data-broken=`,
			want: Map{"data-ssr": "true"},
		},
		{
			name: "malformed fragment in the middle",
			in:   `a="1" data-broken= b="2"`,
			want: Map{"a": "1", "b": "2"},
		},
		{
			name: "last duplicate wins",
			in:   `k="first" k="second"`,
			want: Map{"k": "second"},
		},
		{
			name: "entities are not decoded",
			in:   `title="a&amp;b"`,
			want: Map{"title": "a&amp;b"},
		},
		{
			name: "single quotes and bare names are skipped",
			in:   `async x='y' type="application/json"`,
			want: Map{"type": "application/json"},
		},
		{
			name: "empty value kept",
			in:   `a="" b="1"`,
			want: Map{"a": "", "b": "1"},
		},
		{
			name: "empty",
			in:   "",
			want: Map{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParse_NameNeedsSeparator(t *testing.T) {
	// x is glued to the previous value, so it is not a token of its own.
	got := Parse(`a="1"x="2"`)
	if _, ok := got.Get("x"); ok {
		t.Errorf("expected x to be skipped, got %v", got)
	}
	if v, _ := got.Get("a"); v != "1" {
		t.Errorf("a: got %q, want 1", v)
	}
}

func TestMap_Keys(t *testing.T) {
	m := Parse(`z="1" a="2" m="3"`)
	want := []string{"a", "m", "z"}
	if diff := cmp.Diff(want, m.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}
