package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error is internal", cause, Internal},
		{"direct", New(Forbidden, "nope"), Forbidden},
		{"wrapped by fmt", fmt.Errorf("outer: %w", New(SessionExpired, "Session expired")), SessionExpired},
		{"keeps cause", Wrap(InvalidToken, "bad", cause), InvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(Internal, "lookup failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is() did not find the cause")
	}
}

func TestIsMatchesKindOnly(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New(Conflict, "Username already exists"))
	if !errors.Is(err, &Error{Kind: Conflict}) {
		t.Fatal("expected conflict kind to match")
	}
	if errors.Is(err, &Error{Kind: NotFound}) {
		t.Fatal("did not expect not_found to match")
	}
}

func TestKindString(t *testing.T) {
	if got := AuthRequired.String(); got != "auth_required" {
		t.Fatalf("String() = %q", got)
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Fatalf("String() = %q", got)
	}
}
