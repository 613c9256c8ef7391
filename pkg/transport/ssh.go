package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// SSHTransport drives a router over an SSH session, invoking a small
// JSON-in/JSON-out RPC shim the device firmware exposes at a fixed path
// (`/system/script/rpc`). It backs both the plain-password "ssh" credential
// kind and the key-authenticated "routeros_ssh_key" kind — the only
// difference is which ssh.AuthMethod the caller supplies.
type SSHTransport struct {
	client *ssh.Client
}

// NewSSHTransport dials addr and authenticates with the given auth method
// (ssh.Password for the "ssh" kind, ssh.PublicKeys for "routeros_ssh_key").
func NewSSHTransport(ctx context.Context, addr, username string, auth ssh.AuthMethod, hostKeyCallback ssh.HostKeyCallback) (*SSHTransport, error) {
	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
	}

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, cfg)
		resultCh <- dialResult{c, err}
	}()

	select {
	case <-ctx.Done():
		return nil, &Error{Op: "dial", Err: ctx.Err()}
	case res := <-resultCh:
		if res.err != nil {
			return nil, &Error{Op: "dial", Err: res.err}
		}
		return &SSHTransport{client: res.client}, nil
	}
}

type rpcEnvelope struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

func (t *SSHTransport) call(ctx context.Context, method, path string, body, out any) error {
	env := rpcEnvelope{Method: method, Path: path}
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		env.Body = encoded
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding rpc envelope: %w", err)
	}

	session, err := t.client.NewSession()
	if err != nil {
		return &Error{Op: method + " " + path, Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdin = bytes.NewReader(payload)
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run("/system/script/rpc") }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return &Error{Op: method + " " + path, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return &Error{Op: method + " " + path, Err: fmt.Errorf("%w: %s", err, stderr.String())}
		}
	}

	if out != nil && stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
			return &Error{Op: method + " " + path, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

func (t *SSHTransport) Get(ctx context.Context, path string, out any) error {
	return t.call(ctx, "GET", path, nil, out)
}

func (t *SSHTransport) Post(ctx context.Context, path string, body, out any) error {
	return t.call(ctx, "POST", path, body, out)
}

func (t *SSHTransport) Patch(ctx context.Context, path string, body, out any) error {
	return t.call(ctx, "PATCH", path, body, out)
}

func (t *SSHTransport) Delete(ctx context.Context, path string) error {
	return t.call(ctx, "DELETE", path, nil, nil)
}

func (t *SSHTransport) Close() error {
	return t.client.Close()
}
