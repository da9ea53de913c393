package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	base := stderrors.New("permission denied")
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      New(KindNotFound, `Path "x" not found`),
			expected: `Path "x" not found`,
		},
		{
			name:     "message and cause",
			err:      Wrap(KindIO, "failed to read file", base),
			expected: "failed to read file: permission denied",
		},
		{
			name:     "cause only",
			err:      &Error{Kind: KindIO, Err: base},
			expected: "permission denied",
		},
		{
			name:     "kind only",
			err:      &Error{Kind: KindTimeout},
			expected: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestKindOfWalksChain(t *testing.T) {
	inner := Newf(KindOutsideSandbox, "cannot access %q", "../x")
	wrapped := fmt.Errorf("list: %w", inner)

	if got := KindOf(wrapped); got != KindOutsideSandbox {
		t.Fatalf("expected %s, got %s", KindOutsideSandbox, got)
	}
	if !IsKind(wrapped, KindOutsideSandbox) {
		t.Fatal("IsKind should match wrapped kind")
	}
	if KindOf(stderrors.New("plain")) != "" {
		t.Fatal("plain errors have no kind")
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(KindNotFound, "missing"))
	if !stderrors.Is(err, &Error{Kind: KindNotFound}) {
		t.Fatal("errors.Is should match on kind")
	}
	if stderrors.Is(err, &Error{Kind: KindIO}) {
		t.Fatal("errors.Is should not match a different kind")
	}
}

func TestUnwrap(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(KindIO, "write", base).WithPath("a.txt")
	if !stderrors.Is(err, base) {
		t.Fatal("expected Unwrap to expose the cause")
	}
	if err.Path != "a.txt" {
		t.Fatalf("expected path to be recorded, got %q", err.Path)
	}
}
