package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNanoID_Length(t *testing.T) {
	for _, length := range []int{8, 12, 16, 24} {
		if id := NanoID(length)(); len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
	}
}

func TestNanoID_Alphabet(t *testing.T) {
	id := NanoID(100)()
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
			t.Fatalf("NanoID: unexpected character %q in %q", c, id)
		}
	}
}

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("UUIDv7: %q does not parse: %v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("UUIDv7: got version %d", u.Version())
	}
}

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("UUIDv7: duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("dec_", NanoID(8))()
	if !strings.HasPrefix(id, "dec_") || len(id) != 12 {
		t.Fatalf("Prefixed: got %q", id)
	}
}

func TestNew_IsUUIDv7(t *testing.T) {
	u, err := uuid.Parse(New())
	if err != nil || u.Version() != 7 {
		t.Fatalf("New: got %v (err %v)", u, err)
	}
}
