package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "required", "end": "must be after start"}}
	if got, want := withFields.Error(), "validation failed: end: must be after start; title: required"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("assign: %w", newValidationError("host_id", "required"))
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Fatal("validation errors must match ErrInvalidInput")
	}
	for _, err := range []error{ErrClaimsPaused, ErrHostUnavailable, ErrAlreadyExists} {
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("%v must match ErrConflict", err)
		}
	}
	for _, err := range []error{ErrInvalidCredentials, ErrAccountDisabled} {
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%v must match ErrUnauthorized", err)
		}
	}
	if errors.Is(ErrNotFound, ErrConflict) {
		t.Fatal("ErrNotFound must not match ErrConflict")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":              {err: nil, want: ""},
		"not found":        {err: fmt.Errorf("lookup: %w", ErrNotFound), want: "not_found"},
		"claims paused":    {err: ErrClaimsPaused, want: "claims_paused"},
		"host unavailable": {err: ErrHostUnavailable, want: "host_unavailable"},
		"already exists":   {err: ErrAlreadyExists, want: "already_exists"},
		"conflict":         {err: ErrConflict, want: "conflict"},
		"credentials":      {err: ErrInvalidCredentials, want: "invalid_credentials"},
		"unauthorized":     {err: ErrUnauthorized, want: "unauthorized"},
		"validation":       {err: newValidationError("title", "required"), want: "validation"},
		"unexpected":       {err: errors.New("boom"), want: "unexpected"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind = %q, want %q", got, tc.want)
			}
		})
	}
}
