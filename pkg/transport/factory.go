package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/wisbric/netguard/pkg/credential"
	"github.com/wisbric/netguard/pkg/device"
)

// Factory builds a Transport for one device apply session, given the
// device's management address and its decrypted credential.
type Factory struct {
	// ReadTimeout bounds every individual RPC the returned transport makes.
	ReadTimeout time.Duration
}

// New resolves which concrete Transport to build from the credential kind.
func (f *Factory) New(ctx context.Context, d device.Device, cred credential.Resolved, kind credential.Kind) (Transport, error) {
	switch kind {
	case credential.KindREST:
		client := &http.Client{Timeout: f.ReadTimeout}
		baseURL := "https://" + d.ManagementAddress + "/rest"
		return NewRESTTransport(baseURL, cred.Username, string(cred.Secret), client), nil

	case credential.KindSSH:
		addr := d.ManagementAddress + ":22"
		return NewSSHTransport(ctx, addr, cred.Username, ssh.Password(string(cred.Secret)), ssh.InsecureIgnoreHostKey())

	case credential.KindRouterOSSSHKey:
		signer, err := ssh.ParsePrivateKey(cred.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parsing ssh private key: %w", err)
		}
		addr := d.ManagementAddress + ":22"
		return NewSSHTransport(ctx, addr, cred.Username, ssh.PublicKeys(signer), ssh.InsecureIgnoreHostKey())

	default:
		return nil, fmt.Errorf("unsupported credential kind %q", kind)
	}
}
