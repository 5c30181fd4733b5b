package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// sealedPrefix marks a column value written by SealField
const sealedPrefix = "enc:v1:"

var (
	// ErrInvalidCiphertext indicates the sealed value is malformed or too short
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrFieldKeyMissing is returned when a sealed value is read without DATA_ENCRYPTION_KEY
	ErrFieldKeyMissing = errors.New("DATA_ENCRYPTION_KEY is required to read sealed data")
)

// fieldKey returns the AES-256 key from DATA_ENCRYPTION_KEY, or nil when unset
func fieldKey() ([]byte, error) {
	raw := os.Getenv("DATA_ENCRYPTION_KEY")
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (got %d bytes)", len(key))
	}
	return key, nil
}

func fieldCipher(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SealField encrypts a sensitive column value with AES-256-GCM.
// Without a configured key the value is stored as is.
func SealField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := fieldKey()
	if err != nil || key == nil {
		return plaintext, err
	}
	gcm, err := fieldCipher(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenField reverses SealField. Values without the sealed prefix are returned unchanged.
func OpenField(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	key, err := fieldKey()
	if err != nil {
		return "", err
	}
	if key == nil {
		return "", ErrFieldKeyMissing
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	gcm, err := fieldCipher(key)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// GenerateEncryptionKey returns a new random base64 key for DATA_ENCRYPTION_KEY
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
