package credential

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wisbric/netguard/internal/db"
)

// Service resolves the live, decrypted credential an Apply Executor worker
// needs to authenticate a transport for one device.
type Service struct {
	store     *Store
	decryptor Decryptor
}

// NewService creates a credential Service.
func NewService(dbtx db.DBTX, decryptor Decryptor) *Service {
	return &Service{store: NewStore(dbtx), decryptor: decryptor}
}

// Resolve fetches the active credential of kind for deviceID and decrypts
// its secret material. The caller is responsible for calling Zero on the
// result once the transport session it authenticates is closed.
func (s *Service) Resolve(ctx context.Context, deviceID uuid.UUID, kind Kind) (Resolved, error) {
	cred, err := s.store.GetActive(ctx, deviceID, kind)
	if err != nil {
		return Resolved{}, err
	}

	secret, err := s.decryptor.Decrypt(ctx, cred.EncryptedSecret)
	if err != nil {
		return Resolved{}, fmt.Errorf("decrypting credential secret: %w", err)
	}

	var key []byte
	if len(cred.PrivateKey) > 0 {
		key, err = s.decryptor.Decrypt(ctx, cred.PrivateKey)
		if err != nil {
			return Resolved{}, fmt.Errorf("decrypting credential private key: %w", err)
		}
	}

	return Resolved{Username: cred.Username, Secret: secret, PrivateKey: key}, nil
}
