package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// RESTTransport drives a router's HTTP REST API (e.g. RouterOS's REST
// interface) with basic auth.
type RESTTransport struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewRESTTransport creates a REST transport for one device apply session.
// client should already carry the configured per-RPC read timeout.
func NewRESTTransport(baseURL, username, password string, client *http.Client) *RESTTransport {
	return &RESTTransport{baseURL: baseURL, username: username, password: password, client: client}
}

func (t *RESTTransport) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return &Error{Op: method + " " + path, Err: err}
	}
	req.SetBasicAuth(t.username, t.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &Error{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: method + " " + path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 300 {
		return &Error{Op: method + " " + path, Status: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Op: method + " " + path, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

func (t *RESTTransport) Get(ctx context.Context, path string, out any) error {
	return t.do(ctx, http.MethodGet, path, nil, out)
}

func (t *RESTTransport) Post(ctx context.Context, path string, body, out any) error {
	return t.do(ctx, http.MethodPost, path, body, out)
}

func (t *RESTTransport) Patch(ctx context.Context, path string, body, out any) error {
	return t.do(ctx, http.MethodPatch, path, body, out)
}

func (t *RESTTransport) Delete(ctx context.Context, path string) error {
	return t.do(ctx, http.MethodDelete, path, nil, nil)
}

func (t *RESTTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
