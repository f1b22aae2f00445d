// Package secret provides symmetric encryption for managed dataset database
// credentials. Ciphertext is what gets persisted in the DatasetDatabase
// directory; plaintext only ever lives in memory for the duration of a
// connection attempt.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/theapemachine/recall/pkg/errs"
)

// Box encrypts and decrypts short credential strings with AES-GCM. The key
// is derived from a passphrase via SHA-256.
type Box struct {
	key [32]byte
}

// NewBox derives a cipher box from the configured passphrase.
func NewBox(passphrase string) *Box {
	return &Box{key: sha256.Sum256([]byte(passphrase))}
}

// Encrypt seals the plaintext and returns a base64 string safe for storage.
func (b *Box) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64 ciphertext produced by Encrypt. Failures map to
// ErrSecretResolution; callers must never fall back to treating the
// ciphertext as plaintext.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSecretResolution, err)
	}

	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSecretResolution, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSecretResolution, err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", errs.ErrSecretResolution)
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSecretResolution, err)
	}

	return string(plaintext), nil
}
