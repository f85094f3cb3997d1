package mediamtx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		code int
		msg  string
		want Kind
	}{
		{http.StatusUnauthorized, "", Unauthorized},
		{http.StatusForbidden, "", Unauthorized},
		{http.StatusNotFound, "", NotFound},
		{http.StatusConflict, "", Conflict},
		{http.StatusBadRequest, `{"error":"path already exists"}`, Conflict},
		{http.StatusBadRequest, "path not found", NotFound},
		{http.StatusBadRequest, "invalid source", InvalidConfig},
		{http.StatusUnprocessableEntity, "bad value", InvalidConfig},
		{http.StatusBadGateway, "", Unreachable},
		{http.StatusGatewayTimeout, "", Unreachable},
		{http.StatusInternalServerError, "boom", BadResponse},
		{http.StatusTeapot, "", BadResponse},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.code, tt.msg), func(t *testing.T) {
			if got := kindForStatus(tt.code, tt.msg); got != tt.want {
				t.Errorf("kindForStatus(%d, %q) = %v, want %v", tt.code, tt.msg, got, tt.want)
			}
		})
	}
}

func TestStatusError_message(t *testing.T) {
	err := statusError("list", http.StatusNotFound, "")
	if err.Error() != "API request failed: 404 Not Found" {
		t.Errorf("unexpected synthesized message %q", err.Error())
	}
	err = statusError("list", http.StatusBadRequest, " nope \n")
	if err.Error() != "nope" {
		t.Errorf("expected trimmed body, got %q", err.Error())
	}
}

func TestKindOf_wrapped(t *testing.T) {
	base := &Error{Kind: Conflict, Message: "dup"}
	wrapped := fmt.Errorf("create: %w", base)
	if KindOf(wrapped) != Conflict {
		t.Errorf("KindOf lost kind through wrapping")
	}
	if !errors.Is(wrapped, Conflict) || errors.Is(wrapped, NotFound) {
		t.Errorf("errors.Is matched wrong kind")
	}
	if KindOf(errors.New("other")) != 0 {
		t.Errorf("foreign error should have kind 0")
	}
	cause := errors.New("dial tcp: refused")
	e := &Error{Kind: Unreachable, Err: cause}
	if !errors.Is(e, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}
}
