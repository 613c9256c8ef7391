package transport

import (
	"errors"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connect failure", &Error{Op: "GET /x", Err: errors.New("dial tcp: connection refused")}, true},
		{"5xx", &Error{Op: "POST /x", Status: 503, Err: errors.New("unavailable")}, true},
		{"4xx", &Error{Op: "POST /x", Status: 404, Err: errors.New("not found")}, false},
		{"non-transport error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Op: "POST /ip/firewall/filter", Status: 500, Err: errors.New("boom")}
	want := "transport: POST /ip/firewall/filter: status 500: boom"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
