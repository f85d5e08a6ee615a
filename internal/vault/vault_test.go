package vault

import (
	"bytes"
	"errors"
	"testing"

	"hearth/internal/keystore"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys := keystore.NewMemoryStore()
	cipher := NewDocumentCipher(keys)

	if _, err := cipher.EnsureFamilyKey("fam-1", "user-a"); err != nil {
		t.Fatalf("EnsureFamilyKey() error = %v", err)
	}

	plaintext := []byte("passport scan, 2.3MB of pixels")
	ct, err := cipher.Encrypt(plaintext, "fam-1", "user-a")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(ct, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}

	got, err := cipher.Decrypt(ct, "fam-1", "user-a")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch")
	}
}

func TestEncryptWithoutKeyFails(t *testing.T) {
	cipher := NewDocumentCipher(keystore.NewMemoryStore())

	if _, err := cipher.Encrypt([]byte("x"), "fam-1", "user-a"); !errors.Is(err, ErrMissingFamilyKey) {
		t.Errorf("Encrypt() error = %v, want ErrMissingFamilyKey", err)
	}
	if _, err := cipher.Decrypt(make([]byte, 64), "fam-1", "user-a"); !errors.Is(err, ErrMissingFamilyKey) {
		t.Errorf("Decrypt() error = %v, want ErrMissingFamilyKey", err)
	}
}

func TestDecryptTamperedPayload(t *testing.T) {
	keys := keystore.NewMemoryStore()
	cipher := NewDocumentCipher(keys)
	if _, err := cipher.EnsureFamilyKey("fam-1", "user-a"); err != nil {
		t.Fatalf("EnsureFamilyKey() error = %v", err)
	}

	ct, err := cipher.Encrypt([]byte("birth certificate"), "fam-1", "user-a")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{name: "flipped bit", mutate: func(b []byte) []byte { b[20] ^= 0x01; return b }},
		{name: "truncated", mutate: func(b []byte) []byte { return b[:10] }},
		{name: "empty", mutate: func([]byte) []byte { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := tt.mutate(append([]byte{}, ct...))
			got, err := cipher.Decrypt(tampered, "fam-1", "user-a")
			if !errors.Is(err, ErrInvalidCipher) {
				t.Errorf("Decrypt() error = %v, want ErrInvalidCipher", err)
			}
			if got != nil {
				t.Errorf("Decrypt() returned data on tampered input")
			}
		})
	}
}

func TestDecryptWrongFamilyKey(t *testing.T) {
	keys := keystore.NewMemoryStore()
	cipher := NewDocumentCipher(keys)
	if _, err := cipher.EnsureFamilyKey("fam-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := cipher.EnsureFamilyKey("fam-2", "user-a"); err != nil {
		t.Fatal(err)
	}

	ct, err := cipher.Encrypt([]byte("school report"), "fam-1", "user-a")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := cipher.Decrypt(ct, "fam-2", "user-a"); !errors.Is(err, ErrInvalidCipher) {
		t.Errorf("Decrypt() under other family's key error = %v, want ErrInvalidCipher", err)
	}
}

func TestEnsureFamilyKeyIsStable(t *testing.T) {
	keys := keystore.NewMemoryStore()
	cipher := NewDocumentCipher(keys)

	k1, err := cipher.EnsureFamilyKey("fam-1", "user-a")
	if err != nil {
		t.Fatalf("EnsureFamilyKey() error = %v", err)
	}
	k2, err := cipher.EnsureFamilyKey("fam-1", "user-a")
	if err != nil {
		t.Fatalf("EnsureFamilyKey() error = %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("EnsureFamilyKey() regenerated an existing key")
	}
}
