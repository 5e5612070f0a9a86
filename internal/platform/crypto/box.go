package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var ErrNotConfigured = errors.New("encryption key not configured")

// Box seals small secrets (TOTP seeds) with AES-256-GCM. The nonce is
// prepended to the ciphertext.
type Box struct {
	aead cipher.AEAD
}

// NewBox accepts a 32-byte key given as hex, base64 or raw text. An empty key
// yields an unconfigured box.
func NewBox(key string) (*Box, error) {
	if key == "" {
		return &Box{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding, got %d", len(decoded))
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

func (b *Box) Configured() bool {
	return b != nil && b.aead != nil
}

func (b *Box) EncryptString(value string) ([]byte, error) {
	if !b.Configured() {
		return nil, ErrNotConfigured
	}
	if value == "" {
		return nil, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return b.aead.Seal(nonce, nonce, []byte(value), nil), nil
}

func (b *Box) DecryptString(sealed []byte) (string, error) {
	if !b.Configured() {
		return "", ErrNotConfigured
	}
	if len(sealed) == 0 {
		return "", nil
	}
	size := b.aead.NonceSize()
	if len(sealed) < size {
		return "", errors.New("ciphertext too short")
	}
	plain, err := b.aead.Open(nil, sealed[:size], sealed[size:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded
	}
	return []byte(raw)
}
