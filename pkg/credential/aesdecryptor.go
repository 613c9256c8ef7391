package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
)

// AESDecryptor decrypts ciphertext produced by AES-256-GCM, keyed by a
// SHA-256-derived key, for credentials encrypted at rest.
type AESDecryptor struct {
	key [32]byte
}

// NewAESDecryptor derives a 32-byte key from secret via SHA-256.
func NewAESDecryptor(secret string) *AESDecryptor {
	return &AESDecryptor{key: sha256.Sum256([]byte(secret))}
}

// Decrypt implements Decryptor. ciphertext must be nonce||sealed, as
// produced by a GCM Seal call using the same key.
func (d *AESDecryptor) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(d.key[:])
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext shorter than nonce size")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}
