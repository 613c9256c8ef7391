package plan

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenPrefix makes a presented token recognizable without decoding it.
const TokenPrefix = "ngd_appr_"

// tokenRandBytes is the amount of entropy behind every minted token —
// 32 bytes comfortably exceeds what a uniqueness constraint needs.
const tokenRandBytes = 32

// MintToken generates a new opaque, cryptographically random approval
// token and returns both the raw value (returned to the caller exactly
// once, in the plan-create response's _meta) and the sha256 hash that is
// all the Plan Service ever persists.
func MintToken() (raw string, hash []byte, err error) {
	b := make([]byte, tokenRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("reading random bytes: %w", err)
	}
	raw = TokenPrefix + hex.EncodeToString(b)
	sum := sha256.Sum256([]byte(raw))
	return raw, sum[:], nil
}

// hashToken hashes a presented token the same way MintToken hashes a
// freshly minted one, so the two can be compared.
func hashToken(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

// ValidateApprovalToken implements validate_approval_token. Comparison
// against the stored hash is constant-time: every presented token, valid or
// not, costs the same compare time.
func ValidateApprovalToken(p Plan, presented string, now time.Time) error {
	if p.Status != StatusPending && p.Status != StatusApproved {
		return ErrPlanNotApplicable
	}
	if len(p.ApprovalTokenHash) == 0 {
		return ErrTokenMissing
	}

	presentedHash := hashToken(presented)
	if subtle.ConstantTimeCompare(presentedHash, p.ApprovalTokenHash) != 1 {
		return ErrTokenMismatch
	}

	if now.After(p.ApprovalExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}
