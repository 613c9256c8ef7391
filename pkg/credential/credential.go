// Package credential implements the Credential Store: resolving the active
// secret for a device+kind pair. Credential encryption itself is an
// external collaborator — this package depends on a Decryptor interface
// rather than performing cryptography inline.
package credential

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind is the transport a credential authenticates.
type Kind string

const (
	KindREST           Kind = "rest"
	KindSSH            Kind = "ssh"
	KindRouterOSSSHKey Kind = "routeros_ssh_key"
)

// Credential is a device's stored secret material. EncryptedSecret and
// PrivateKey are ciphertext at rest; only Decryptor.Decrypt turns them into
// usable material, and only for the lifetime of one transport call.
type Credential struct {
	ID                   uuid.UUID
	DeviceID             uuid.UUID
	Kind                 Kind
	Username             string
	EncryptedSecret      []byte
	PrivateKey           []byte
	PublicKeyFingerprint string
	Active               bool
	RotatedAt            time.Time
}

// ErrNotFound is returned when no active credential exists for the
// requested device+kind.
var ErrNotFound = errors.New("credential not found")

// Decryptor turns credential ciphertext into plaintext. A concrete
// implementation (e.g. AES-GCM with a KMS-managed key) is wired in at
// startup; the core never hardcodes a cipher.
type Decryptor interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Resolved is decrypted credential material, held only as long as one
// transport call needs it.
type Resolved struct {
	Username   string
	Secret     []byte
	PrivateKey []byte
}

// Zero overwrites Secret and PrivateKey in place once the caller is done
// with them, matching the design's "zeroed after use" invariant.
func (r *Resolved) Zero() {
	for i := range r.Secret {
		r.Secret[i] = 0
	}
	for i := range r.PrivateKey {
		r.PrivateKey[i] = 0
	}
}
