package nuxt

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/hydrate/devalue"
)

// payload mirrors what the server emits for a page with async data, state,
// an error and an island.
const payload = `[["ShallowReactive",1],` +
	`{"data":2,"state":5,"once":8,"_errors":10,"serverRendered":12,"path":13,"error":14,"island":18,"blink":20},` +
	`["ShallowReactive",3],{"hello":4},"world",{"$scount":6},["Ref",7],1,["EmptyRef",9],"null",` +
	`["ShallowReactive",11],{},true,"/",["NuxtError",15],{"statusCode":16,"message":17},404,"Page not found",` +
	`["Island",19],"MyIsland_abc",["BlinkingText",21],"x"]`

func fixtureRegistry(t *testing.T) *devalue.Registry {
	t.Helper()
	reg, err := WithRevivers(devalue.Named("BlinkingText", func(any) (any, error) {
		return "<revivified-blink>", nil
	}))
	if err != nil {
		t.Fatalf("WithRevivers: %v", err)
	}
	return reg
}

func TestRevivers_Payload(t *testing.T) {
	v, err := devalue.Parse(payload, fixtureRegistry(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	root, ok := v.(*Reactive)
	if !ok || !root.Shallow {
		t.Fatalf("root: got %#v, want shallow *Reactive", v)
	}
	obj := root.Target.(*devalue.Object)

	state, _ := obj.Get("state")
	count, _ := state.(*devalue.Object).Get("$scount")
	if ref, ok := count.(*Ref); !ok || ref.Shallow || ref.Value != 1.0 {
		t.Errorf("$scount: got %#v, want deep Ref(1)", count)
	}

	errVal, _ := obj.Get("error")
	nerr, ok := errVal.(*Error)
	if !ok {
		t.Fatalf("error: got %T, want *Error", errVal)
	}
	if nerr.StatusCode != 404 || nerr.Message != "Page not found" {
		t.Errorf("error: got %+v", nerr)
	}

	island, _ := obj.Get("island")
	if island != "MyIsland_abc" {
		t.Errorf("island: got %#v, want the raw key", island)
	}

	plain, err := devalue.Plain(v)
	if err != nil {
		t.Fatalf("Plain: %v", err)
	}
	want := map[string]any{
		"data":           map[string]any{"hello": "world"},
		"state":          map[string]any{"$scount": 1.0},
		"once":           nil,
		"_errors":        map[string]any{},
		"serverRendered": true,
		"path":           "/",
		"error":          map[string]any{"statusCode": 404.0, "message": "Page not found"},
		"island":         "MyIsland_abc",
		"blink":          "<revivified-blink>",
	}
	if diff := cmp.Diff(want, plain); diff != "" {
		t.Errorf("plain (-want +got):\n%s", diff)
	}
}

func TestRevivers_WithoutFixtureReviver(t *testing.T) {
	_, err := devalue.Parse(payload, Revivers())
	var ute *devalue.UnknownTagError
	if !errors.As(err, &ute) || ute.Tag != "BlinkingText" {
		t.Fatalf("got %v, want UnknownTagError for BlinkingText", err)
	}
}

func TestRevivers_Names(t *testing.T) {
	want := []string{"EmptyRef", "EmptyShallowRef", "Island", "NuxtError", "Reactive", "Ref", "ShallowReactive", "ShallowRef"}
	if diff := cmp.Diff(want, Revivers().Names()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestWithRevivers_Duplicate(t *testing.T) {
	if _, err := WithRevivers(devalue.Named(TagRef, func(p any) (any, error) { return p, nil })); !errors.Is(err, devalue.ErrDuplicateReviver) {
		t.Errorf("got %v, want ErrDuplicateReviver", err)
	}
}

func TestEmptyRef(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		shallow bool
		check   func(any) bool
	}{
		{"undefined", `[["EmptyRef",1],"_"]`, false, func(v any) bool { return v == (devalue.Undefined{}) }},
		{"zero bigint", `[["EmptyShallowRef",1],"0n"]`, true, func(v any) bool { b, ok := v.(*big.Int); return ok && b.Sign() == 0 }},
		{"false", `[["EmptyRef",1],"false"]`, false, func(v any) bool { return v == false }},
		{"empty string", `[["EmptyShallowRef",1],"\"\""]`, true, func(v any) bool { return v == "" }},
		{"zero", `[["EmptyRef",1],"0"]`, false, func(v any) bool { return v == 0.0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := devalue.Parse(tt.in, Revivers())
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			ref, ok := v.(*Ref)
			if !ok {
				t.Fatalf("got %T, want *Ref", v)
			}
			if ref.Shallow != tt.shallow {
				t.Errorf("shallow: got %v", ref.Shallow)
			}
			if !tt.check(ref.Value) {
				t.Errorf("value: got %#v", ref.Value)
			}
		})
	}
}

func TestEmptyRef_BadPayload(t *testing.T) {
	_, err := devalue.Parse(`[["EmptyRef",1],"{broken"]`, Revivers())
	var de *devalue.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want DecodeError", err)
	}
	_, err = devalue.Parse(`[["EmptyRef",1],42]`, Revivers())
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want DecodeError for non-string payload", err)
	}
}

func TestError_Revive(t *testing.T) {
	v, err := devalue.Parse(`[["NuxtError",1],{"statusCode":2,"statusMessage":3,"message":4,"data":5,"fatal":7},`+
		`500,"Server Error","boom",{"id":6},9,true]`, Revivers())
	if err != nil {
		t.Fatal(err)
	}
	e := v.(*Error)
	if e.StatusCode != 500 || e.StatusMessage != "Server Error" || e.Message != "boom" || !e.Fatal || e.Unhandled {
		t.Errorf("got %+v", e)
	}
	if e.Error() != "nuxt: 500 Server Error: boom" {
		t.Errorf("Error(): %q", e.Error())
	}
	var target *Error
	if !errors.As(error(e), &target) {
		t.Error("revived errors should satisfy the error interface")
	}
}

func TestError_PlainKeepsPayloadShape(t *testing.T) {
	v, err := devalue.Parse(`[["NuxtError",1],{"message":2},"gone"]`, Revivers())
	if err != nil {
		t.Fatal(err)
	}
	if e := v.(*Error); e.StatusCode != DefaultStatusCode {
		t.Errorf("status: got %d, want %d", e.StatusCode, DefaultStatusCode)
	}
	got, err := devalue.Plain(v)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"message": "gone"}, got); diff != "" {
		t.Errorf("plain mismatch (-want +got):\n%s", diff)
	}

	hand := &Error{StatusCode: 404, Message: "missing"}
	want := map[string]any{"statusCode": 404.0, "message": "missing"}
	if diff := cmp.Diff(want, hand.PlainValue()); diff != "" {
		t.Errorf("hand-built plain mismatch (-want +got):\n%s", diff)
	}
}

func TestError_DefaultsAndStringPayload(t *testing.T) {
	v, err := devalue.Parse(`[["NuxtError",1],"just a message"]`, Revivers())
	if err != nil {
		t.Fatal(err)
	}
	e := v.(*Error)
	if e.StatusCode != DefaultStatusCode || e.Message != "just a message" {
		t.Errorf("got %+v", e)
	}
	if _, err := devalue.Parse(`[["NuxtError",1],true]`, Revivers()); err == nil {
		t.Error("expected error for boolean payload")
	}
}
