package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"github.com/hamrocafe/cafecloud/internal/pkg/env"
)

// KeyFromEnv reads the 32-byte AES key from TENANT_CONN_KEY (hex).
func KeyFromEnv() ([]byte, error) {
	raw := env.GetEnv("TENANT_CONN_KEY", "")
	if raw == "" {
		return nil, errors.New("TENANT_CONN_KEY is not set")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.New("TENANT_CONN_KEY must be hex encoded")
	}
	if len(key) != 32 {
		return nil, errors.New("TENANT_CONN_KEY must decode to 32 bytes")
	}
	return key, nil
}

// EncryptToB64 encrypts plaintext with AES-GCM and returns base64 string.
func EncryptToB64(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptFromB64 decrypts a base64 AES-GCM string.
func DecryptFromB64(key []byte, b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	ns := gcm.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := raw[:ns], raw[ns:]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
