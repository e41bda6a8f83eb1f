package devalue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the payload is not a devalue array.
	ErrInvalidInput = errors.New("devalue: invalid input")

	// ErrForwardReference is returned when a reference points past the
	// node table, either ahead of traversal order or out of range.
	ErrForwardReference = errors.New("devalue: forward or out-of-range reference")

	// ErrDuplicateReviver is returned when a registry already holds a name.
	ErrDuplicateReviver = errors.New("devalue: duplicate reviver name")

	// ErrCyclic is returned by Plain for graphs that contain a cycle.
	ErrCyclic = errors.New("devalue: cyclic value")
)

// DecodeError reports a malformed or inconsistent payload.
type DecodeError struct {
	Index  int // node slot being decoded, -1 for the payload as a whole
	Offset int // byte offset of that slot in the payload text, -1 if unknown
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	s := "devalue: decode"
	if e.Index >= 0 {
		s += fmt.Sprintf(" slot %d", e.Index)
	}
	if e.Offset >= 0 {
		s += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnknownTagError is carried by a DecodeError when a tagged node names a
// type that neither the registry nor the built-ins know.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %q", e.Tag)
}
