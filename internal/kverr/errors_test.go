package kverr

import (
	"errors"
	"fmt"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorType
	}{
		{NotFound("key k"), ErrorTypeNotFound},
		{WrongType("GET on sorted-set value"), ErrorTypeWrongType},
		{BadArguments("wrong count"), ErrorTypeBadArguments},
		{Protocol("bad frame"), ErrorTypeProtocol},
		{Internal("io", errors.New("disk full")), ErrorTypeInternal},
	}
	for _, c := range cases {
		if got := TypeOf(c.err); got != c.want {
			t.Errorf("TypeOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}

	if !IsNotFound(NotFound("x")) {
		t.Error("IsNotFound false for not-found error")
	}
	if IsNotFound(WrongType("x")) {
		t.Error("IsNotFound true for wrong-type error")
	}
	// Foreign errors are treated as internal.
	if !IsInternal(errors.New("plain")) {
		t.Error("plain error should map to internal")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("append failed", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	msg := err.Error()
	if msg != fmt.Sprintf("%s: append failed (disk full)", ErrorTypeInternal) {
		t.Errorf("unexpected message %q", msg)
	}
}
