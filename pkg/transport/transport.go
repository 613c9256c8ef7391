// Package transport implements the Device Transport component: a pluggable
// per-device client speaking REST or SSH to the managed router, with a
// uniform get/post/patch/delete/close surface the Apply Executor drives.
// The core (pkg/apply) only ever sees the Transport interface, never the
// concrete REST/SSH clients.
package transport

import (
	"context"
	"errors"
	"strconv"
)

// Transport is implemented by every concrete device client. Every method
// call must respect ctx's deadline — the Apply Executor's context carries
// the per-device deadline; the REST client built by Factory also bounds each
// RPC with Factory.ReadTimeout.
type Transport interface {
	// Get fetches the resource at path and decodes it into out.
	Get(ctx context.Context, path string, out any) error
	// Post creates a resource at path from body, decoding the response
	// (which carries the device-assigned id) into out.
	Post(ctx context.Context, path string, body, out any) error
	// Patch partially updates the resource at path.
	Patch(ctx context.Context, path string, body, out any) error
	// Delete removes the resource at path.
	Delete(ctx context.Context, path string) error
	// Close releases any underlying connection. Idempotent.
	Close() error
}

// Error wraps a device call failure (connect, timeout, or a non-2xx HTTP
// status). The Apply Executor retries only those Retryable accepts (no
// status, or 5xx) within a device's attempt budget; a 4xx Error or any
// other error terminates the device's apply immediately.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return "transport: " + e.Op + ": status " + strconv.Itoa(e.Status) + ": " + e.Err.Error()
	}
	return "transport: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether err is a transport failure the Apply Executor
// should retry (connect/timeout, or an HTTP 5xx status).
func Retryable(err error) bool {
	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	if te.Status == 0 {
		return true // connect/timeout, no HTTP status was ever obtained
	}
	return te.Status >= 500
}
