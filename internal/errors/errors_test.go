package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "doing thing")
	if got := err.Error(); got != "doing thing: boom" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped cause must be reachable via errors.Is")
	}
}

func TestCodePredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{NotFound("x"), IsNotFound},
		{Conflict("x"), IsConflict},
		{Validation("x"), IsValidation},
		{Unauthenticated("x"), IsUnauthenticated},
		{Forbidden("x"), IsForbidden},
		{Provider("x"), IsProvider},
		{Internal("x"), IsInternal},
	}
	for _, tc := range cases {
		if !tc.pred(tc.err) {
			t.Fatalf("predicate failed for %v", tc.err)
		}
		// Predicates must see through wrapping.
		if !tc.pred(fmt.Errorf("outer: %w", tc.err)) {
			t.Fatalf("predicate failed through wrapping for %v", tc.err)
		}
	}
	if IsNotFound(Conflict("x")) {
		t.Fatalf("predicates must not cross codes")
	}
	if IsNotFound(nil) || IsNotFound(errors.New("plain")) {
		t.Fatalf("predicates must reject non-AppError values")
	}
}

func TestGetCodeAndField(t *testing.T) {
	err := ValidationField("username", "taken")
	if GetCode(err) != ErrCodeValidation {
		t.Fatalf("unexpected code %q", GetCode(err))
	}
	if GetField(err) != "username" {
		t.Fatalf("unexpected field %q", GetField(err))
	}
	if GetCode(errors.New("plain")) != "" {
		t.Fatalf("plain error should have empty code")
	}
}

func TestWrap_NilCause(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatalf("wrapping nil must return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}
