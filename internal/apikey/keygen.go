package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"ecosakshi/backend/internal/config"
)

// NewSecret generates a fresh API key secret. It returns the plaintext (shown
// to the owner exactly once), the SHA-256 hex digest that gets persisted, and
// the masked display prefix.
func NewSecret() (plaintext, hash, prefix string, err error) {
	buf := make([]byte, 24)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key material: %w", err)
	}

	plaintext = config.KeySecretPrefix + hex.EncodeToString(buf)
	hash = HashSecret(plaintext)
	prefix = plaintext[:len(config.KeySecretPrefix)+config.KeyDisplayDigits] + "…"
	return plaintext, hash, prefix, nil
}

// HashSecret returns the stored form of a key secret. A plain SHA-256 digest
// keeps the data-API lookup a single indexed query; the secret itself has
// 192 bits of entropy, so offline guessing is not a concern.
func HashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
