package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// Keeper encrypts and decrypts account passwords at rest. The 32-byte key is
// derived from the configured secret via SHA-256.
type Keeper struct {
	key [32]byte
}

// NewKeeper creates a Keeper from the configured secret string.
func NewKeeper(secret string) (*Keeper, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret key must not be empty")
	}
	k := &Keeper{key: sha256.Sum256([]byte(secret))}
	return k, nil
}

// Encrypt seals the plaintext with a random nonce and returns it
// base64-encoded with the nonce prepended.
func (k *Keeper) Encrypt(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &k.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (k *Keeper) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret: %w", err)
	}
	if len(sealed) < 24 {
		return "", fmt.Errorf("encrypted secret too short")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &k.key)
	if !ok {
		return "", fmt.Errorf("failed to decrypt secret")
	}
	return string(plaintext), nil
}
