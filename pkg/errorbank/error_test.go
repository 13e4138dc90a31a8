package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodePerKind(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest(""), http.StatusBadRequest},
		{Conflict(""), http.StatusConflict},
		{NotFound(""), http.StatusNotFound},
		{Unprocessable(""), http.StatusUnprocessableEntity},
		{Unavailable(""), http.StatusBadGateway},
		{Internal(""), http.StatusInternalServerError},
		{nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.StatusCode(); got != tt.want {
			t.Errorf("kind %s: status = %d, want %d", tt.err.Kind(), got, tt.want)
		}
	}
}

func TestFromPreservesWrappedAppError(t *testing.T) {
	orig := NotFound("order not found", WithDetail("code", "ORD-1-ab"))
	wrapped := fmt.Errorf("status read: %w", orig)

	got := From(wrapped)
	if got.Kind() != KindNotFound {
		t.Fatalf("kind = %s, want %s", got.Kind(), KindNotFound)
	}
	if got.Details()["code"] != "ORD-1-ab" {
		t.Errorf("details = %+v", got.Details())
	}
}

func TestFromWrapsForeignErrorsAsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	got := From(cause)

	if got.Kind() != KindInternal {
		t.Fatalf("kind = %s, want %s", got.Kind(), KindInternal)
	}
	if !errors.Is(got, cause) {
		t.Error("cause lost through From")
	}
	// The message must stay generic; the cause belongs in the log only.
	if got.Message() != "internal error" {
		t.Errorf("message = %q", got.Message())
	}
}

func TestFromNil(t *testing.T) {
	if got := From(nil); got != nil {
		t.Fatalf("From(nil) = %v", got)
	}
}
