package devalue

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func identity(p any) (any, error) { return p, nil }

func TestRegistry_DuplicateName(t *testing.T) {
	_, err := NewRegistry(Named("Ref", identity), Named("Ref", identity))
	if !errors.Is(err, ErrDuplicateReviver) {
		t.Fatalf("got %v, want ErrDuplicateReviver", err)
	}
}

func TestRegistry_EmptyName(t *testing.T) {
	reg := MustRegistry()
	if err := reg.Register(Named("", identity)); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRegistry_CaseSensitive(t *testing.T) {
	reg := MustRegistry(Named("Ref", identity), Named("ref", identity))
	if diff := cmp.Diff([]string{"Ref", "ref"}, reg.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if _, ok := reg.Lookup("REF"); ok {
		t.Error("lookup should be case-sensitive")
	}
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var reg *Registry
	if _, ok := reg.Lookup("Ref"); ok {
		t.Error("nil registry should hold nothing")
	}
	if reg.Names() != nil {
		t.Error("nil registry should have no names")
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	base := MustRegistry(Named("A", identity))
	ext := base.Clone()
	if err := ext.Register(Named("B", identity)); err != nil {
		t.Fatal(err)
	}
	if _, ok := base.Lookup("B"); ok {
		t.Error("clone registration leaked into the original")
	}
	if _, ok := ext.Lookup("A"); !ok {
		t.Error("clone lost an original reviver")
	}
}

func TestMustRegistry_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate name")
		}
	}()
	MustRegistry(Named("X", identity), Named("X", identity))
}
