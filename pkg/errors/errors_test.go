package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeDuplicateReturn, http.StatusConflict},
		{CodeDuplicateAsset, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %s: expected status %d got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "load order")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeDuplicateReturn, "return exists")
	outer := fmt.Errorf("handler: %w", inner)
	typed := As(outer)
	if typed == nil || typed.Code() != CodeDuplicateReturn {
		t.Fatalf("expected typed duplicate-return error, got %v", typed)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeDuplicateAsset, "code collision").WithDetails(map[string]string{"code": "X9"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["code"] != "X9" {
		t.Fatalf("unexpected details %v", err.Details())
	}
}
