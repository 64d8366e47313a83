package wallet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

var testSignature = []byte("0x4f1c2a7d9e0b3c6f8a5d2e1b4c7f0a3d6e9b2c5f8a1d4e7b0c3f6a9d2e5b8c1f4a7d0e3b6c9f2a5d8e1b4c7f0a3d6e9b2c5f8a1d4e7b0c3f6a9d2e5b8c1f41b")

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	plaintext := []byte("cached secret")

	encrypted, err := Encrypt(plaintext, testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	decrypted, err := Decrypt(encrypted, testSignature)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestDecrypt_WrongSignature(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret data"), testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	plaintext, err := Decrypt(encrypted, []byte("0xdeadbeef"))
	if err == nil {
		t.Error("Decrypt with wrong signature should fail")
	}
	if plaintext != nil {
		t.Errorf("Decrypt returned %q alongside an error", plaintext)
	}
}

func TestDecrypt_TruncatedData(t *testing.T) {
	_, err := Decrypt([]byte("too short"), testSignature)
	if err == nil {
		t.Error("Decrypt with truncated data should fail")
	}
}

func TestDecrypt_CorruptedCiphertext(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	// Corrupt the last byte (part of auth tag)
	encrypted[len(encrypted)-1] ^= 0xFF

	_, err = Decrypt(encrypted, testSignature)
	if err == nil {
		t.Error("Decrypt with corrupted ciphertext should fail")
	}
}

func TestEncrypt_DifferentEachTime(t *testing.T) {
	plaintext := []byte("same data")

	enc1, err := Encrypt(plaintext, testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	enc2, err := Encrypt(plaintext, testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	if bytes.Equal(enc1[:NonceSize], enc2[:NonceSize]) {
		t.Error("nonce reused across encryptions")
	}
	if bytes.Equal(enc1, enc2) {
		t.Error("encrypting same data twice should produce different output")
	}
}

func TestEncrypt_OutputFormat(t *testing.T) {
	plaintext := []byte("123456")

	encrypted, err := Encrypt(plaintext, testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	// nonce(12) + ciphertext(len(plaintext)) + tag(16)
	want := NonceSize + len(plaintext) + 16
	if len(encrypted) != want {
		t.Errorf("encrypted length = %d, want %d", len(encrypted), want)
	}
}

func TestEncryptPIN_Roundtrip(t *testing.T) {
	blob, err := EncryptPIN("042917", testSignature)
	if err != nil {
		t.Fatalf("EncryptPIN() error: %v", err)
	}
	if bytes.Contains(blob, []byte("042917")) {
		t.Error("PIN visible in ciphertext")
	}

	pin, err := DecryptPIN(blob, testSignature)
	if err != nil {
		t.Fatalf("DecryptPIN() error: %v", err)
	}
	if pin != "042917" {
		t.Errorf("DecryptPIN() = %q, want %q", pin, "042917")
	}

	if _, err := DecryptPIN(blob, []byte("another wallet signature")); err == nil {
		t.Error("DecryptPIN with wrong signature should fail")
	}
}

func TestEncryptPIN_RejectsInvalidPIN(t *testing.T) {
	_, err := EncryptPIN("12345", testSignature)
	if !errors.Is(err, stealth.ErrInvalidFormat) {
		t.Errorf("EncryptPIN(short) error = %v, want ErrInvalidFormat", err)
	}
}

func TestDecryptPIN_RejectsNonPINPlaintext(t *testing.T) {
	blob, err := Encrypt([]byte("not-a-pin"), testSignature)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := DecryptPIN(blob, testSignature); !errors.Is(err, stealth.ErrInvalidFormat) {
		t.Errorf("DecryptPIN error = %v, want ErrInvalidFormat", err)
	}
}
