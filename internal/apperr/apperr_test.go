package apperr_test

import (
	"errors"
	"net/http"
	"testing"

	"streamvault/internal/apperr"
)

func TestKindOf(t *testing.T) {
	err := apperr.New(apperr.NotFound, "no such item")
	if got := apperr.KindOf(err); got != apperr.NotFound {
		t.Fatalf("KindOf() = %v, want %v", got, apperr.NotFound)
	}

	if got := apperr.KindOf(errors.New("plain error")); got != apperr.Internal {
		t.Fatalf("KindOf(plain) = %v, want %v", got, apperr.Internal)
	}
}

func TestStatusCode(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.NotFound:              http.StatusNotFound,
		apperr.Unauthorized:          http.StatusUnauthorized,
		apperr.Forbidden:             http.StatusForbidden,
		apperr.Conflict:              http.StatusConflict,
		apperr.InvalidInput:          http.StatusBadRequest,
		apperr.Upstream:              http.StatusBadGateway,
		apperr.Transient:             http.StatusBadGateway,
		apperr.EncodeFailed:          http.StatusUnprocessableEntity,
		apperr.TranscoderUnavailable: http.StatusServiceUnavailable,
		apperr.Internal:              http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := apperr.StatusCode(kind); got != want {
			t.Errorf("StatusCode(%v) = %d, want %d", kind, got, want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk failure")
	wrapped := apperr.Wrap(apperr.Internal, "could not read file", cause)

	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is(wrapped, cause) = false, want true")
	}
	if wrapped.Error() != "could not read file: disk failure" {
		t.Fatalf("Error() = %q", wrapped.Error())
	}
}
