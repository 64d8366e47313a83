package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Encryption constants.
const (
	NonceSize = 12 // 96-bit GCM nonce
	KeySize   = 32 // AES-256

	// pinCacheSalt separates the cache key from every key-derivation salt.
	pinCacheSalt = "Klingnet Stealth PIN Cache"
)

// deriveCacheKey uses PBKDF2-SHA256 to derive the AES key from the wallet
// signature.
func deriveCacheKey(signature []byte) []byte {
	return pbkdf2.Key(signature, []byte(pinCacheSalt), PBKDF2Iterations, KeySize, sha256.New)
}

// Encrypt seals data under a key derived from signature using AES-256-GCM.
//
// Output format: nonce(12) | ciphertext+tag
func Encrypt(data, signature []byte) ([]byte, error) {
	if len(signature) == 0 {
		return nil, fmt.Errorf("empty signature")
	}
	key := deriveCacheKey(signature)
	defer clear(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, NonceSize+len(data)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

// Decrypt opens data sealed by Encrypt. A wrong signature or tampered
// ciphertext fails authentication and returns an error, never plaintext.
func Decrypt(encrypted, signature []byte) ([]byte, error) {
	minSize := NonceSize + 16
	if len(encrypted) < minSize {
		return nil, fmt.Errorf("encrypted data too short: %d bytes, need at least %d", len(encrypted), minSize)
	}
	key := deriveCacheKey(signature)
	defer clear(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, encrypted[:NonceSize], encrypted[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

// EncryptPIN validates and seals a PIN for local caching.
func EncryptPIN(pin string, signature []byte) ([]byte, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	return Encrypt([]byte(pin), signature)
}

// DecryptPIN opens a cached PIN. The result is validated so a corrupted
// cache never reaches key derivation.
func DecryptPIN(encrypted, signature []byte) (string, error) {
	plaintext, err := Decrypt(encrypted, signature)
	if err != nil {
		return "", err
	}
	defer clear(plaintext)
	pin := string(plaintext)
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	return pin, nil
}
