package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/netguard/internal/db"
)

// Store is the Postgres-backed persistence for credentials.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a credential Store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const credentialColumns = `
	id, device_id, kind, username, encrypted_secret, private_key,
	public_key_fingerprint, active, rotated_at`

func scanCredential(row pgx.Row) (Credential, error) {
	var c Credential
	var kind string
	if err := row.Scan(
		&c.ID, &c.DeviceID, &kind, &c.Username, &c.EncryptedSecret, &c.PrivateKey,
		&c.PublicKeyFingerprint, &c.Active, &c.RotatedAt,
	); err != nil {
		return Credential{}, err
	}
	c.Kind = Kind(kind)
	return c, nil
}

// GetActive returns the single active credential for (deviceID, kind). The
// at-most-one-active invariant is enforced by a partial unique index in the
// schema; this query simply asserts there is exactly one match.
func (s *Store) GetActive(ctx context.Context, deviceID uuid.UUID, kind Kind) (Credential, error) {
	row := s.dbtx.QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE device_id = $1 AND kind = $2 AND active = true`,
		deviceID, string(kind))

	c, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, fmt.Errorf("scanning credential: %w", err)
	}
	return c, nil
}
