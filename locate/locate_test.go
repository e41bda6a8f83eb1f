package locate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/hydrate/attrs"
)

const islandDoc = `<!DOCTYPE html>
<html>
<head><title>ssr</title></head>
<body>
<div id="__nuxt"><p>hello</p></div>
<script type="application/json" data-nuxt-data="nuxt-app" data-ssr="true" id="__NUXT_DATA__">[{"state":1},{"count":2},42]</script>
<script>window.__NUXT__={};window.__NUXT__.config={public:{}}</script>
</body>
</html>`

const scriptDoc = `<html><body>
<script src="/_nuxt/entry.js"></script>
<script>console.log("not it")</script>
<script>window.__NUXT__={state:{count:42}}</script>
</body></html>`

func TestLocate_DataIsland(t *testing.T) {
	p, err := Locate(islandDoc, ModeDataIsland)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if p.Text != `[{"state":1},{"count":2},42]` {
		t.Errorf("text: got %q", p.Text)
	}
	want := attrs.Map{
		"type":           "application/json",
		"data-nuxt-data": "nuxt-app",
		"data-ssr":       "true",
		"id":             "__NUXT_DATA__",
	}
	if diff := cmp.Diff(want, p.Attrs); diff != "" {
		t.Errorf("attrs mismatch (-want +got):\n%s", diff)
	}
	if got := islandDoc[p.Offset : p.Offset+len(p.Text)]; got != p.Text {
		t.Errorf("offset %d does not point at the payload: %q", p.Offset, got)
	}
}

func TestLocate_Script(t *testing.T) {
	p, err := Locate(scriptDoc, ModeScript)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if p.Text != `window.__NUXT__={state:{count:42}}` {
		t.Errorf("text: got %q", p.Text)
	}
	if len(p.Attrs) != 0 {
		t.Errorf("attrs: got %v, want empty", p.Attrs)
	}
}

func TestLocate_ScriptInIslandDoc(t *testing.T) {
	// The island document also carries a config script; script mode finds it.
	p, err := Locate(islandDoc, ModeScript)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if !strings.HasPrefix(p.Text, GlobalMarker) {
		t.Errorf("text: got %q", p.Text)
	}
}

func TestLocate_NotFound(t *testing.T) {
	docs := map[string]string{
		"no scripts":          `<html><body><p>static</p></body></html>`,
		"json without marker": `<script type="application/json">[1]</script>`,
		"marker without type": `<script data-nuxt-data="nuxt-app">[1]</script>`,
		"empty document":      ``,
	}
	for name, doc := range docs {
		for _, mode := range []Mode{ModeScript, ModeDataIsland} {
			t.Run(name+"/"+string(mode), func(t *testing.T) {
				p, err := Locate(doc, mode)
				if !errors.Is(err, ErrPayloadNotFound) {
					t.Fatalf("got (%v, %v), want ErrPayloadNotFound", p, err)
				}
			})
		}
	}
}

func TestLocate_ScriptWithSrcIsIgnored(t *testing.T) {
	doc := `<script src="/x.js">window.__NUXT__={}</script>`
	if _, err := Locate(doc, ModeScript); !errors.Is(err, ErrPayloadNotFound) {
		t.Errorf("expected ErrPayloadNotFound, got %v", err)
	}
}

func TestLocate_FirstMatchWins(t *testing.T) {
	doc := `<script type="application/json" data-nuxt-data="a">[1]</script>` +
		`<script type="application/json" data-nuxt-data="b">[2]</script>`
	p, err := Locate(doc, ModeDataIsland)
	if err != nil {
		t.Fatal(err)
	}
	if p.Attrs[MarkerAttr] != "a" || p.Text != "[1]" {
		t.Errorf("got %q %v, want first element", p.Text, p.Attrs)
	}

	all, err := LocateAll(doc, ModeDataIsland)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[1].Text != "[2]" {
		t.Errorf("LocateAll: got %d payloads", len(all))
	}
}

func TestLocate_EmptyIslandBody(t *testing.T) {
	p, err := Locate(`<script type="application/json" data-nuxt-data="x"></script>`, ModeDataIsland)
	if err != nil {
		t.Fatal(err)
	}
	if p.Text != "" {
		t.Errorf("text: got %q, want empty", p.Text)
	}
}

func TestLocate_BodyIsVerbatim(t *testing.T) {
	// Entities inside script bodies are not decoded.
	doc := `<script type="application/json" data-nuxt-data="x">["a&amp;b"]</script>`
	p, err := Locate(doc, ModeDataIsland)
	if err != nil {
		t.Fatal(err)
	}
	if p.Text != `["a&amp;b"]` {
		t.Errorf("text: got %q", p.Text)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"js": ModeScript, "JSON": ModeDataIsland, " json ": ModeDataIsland} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("xml"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestAttrText(t *testing.T) {
	tests := map[string]string{
		`<script>`:                      ``,
		`<script type="a">`:             ` type="a"`,
		`<SCRIPT data-x="1" />`:         ` data-x="1" `,
		"<script\ttype=\"a\">":          "\ttype=\"a\"",
	}
	for in, want := range tests {
		if got := attrText(in); got != want {
			t.Errorf("attrText(%q) = %q, want %q", in, got, want)
		}
	}
}
