package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesCodeThroughWrapping(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := Wrap(cause, CodeConflict, "username already taken")

	wrapped := fmt.Errorf("create member: %w", err)

	if !Is(wrapped, CodeConflict) {
		t.Fatalf("expected conflict code to be detected through %%w wrapping")
	}
	if Is(wrapped, CodeNotFound) {
		t.Fatalf("did not expect not_found code")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected cause to stay reachable via errors.Is")
	}
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Fatalf("expected internal_error for plain errors, got %q", got)
	}
	if got := CodeOf(New(CodeForbidden, "no")); got != CodeForbidden {
		t.Fatalf("expected forbidden, got %q", got)
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:          http.StatusBadRequest,
		CodeUnauthorized:        http.StatusUnauthorized,
		CodeForbidden:           http.StatusForbidden,
		CodeNotFound:            http.StatusNotFound,
		CodeConflict:            http.StatusConflict,
		CodeInvalidPolicy:       http.StatusUnprocessableEntity,
		CodeDuplicateCredential: http.StatusInternalServerError,
		CodeInternal:            http.StatusInternalServerError,
		Code("unknown"):         http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(New(CodeBadRequest, "invalid filter")); got != "invalid filter" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(errors.New("raw")); got != "" {
		t.Fatalf("expected empty message for non-domain error, got %q", got)
	}
}
