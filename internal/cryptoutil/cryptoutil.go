// Package cryptoutil provides the symmetric primitives behind document
// encryption and the invite key-wrap protocol: random byte generation,
// HKDF-SHA256 key derivation, and AES-256-GCM seal/open.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of every symmetric key in the system: family
	// master keys, wrap keys, and invite secrets.
	KeySize = 32

	// NonceSize is the AES-GCM nonce size
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag size
	TagSize = 16

	// SaltSize is the HKDF salt size used by the invite protocol
	SaltSize = 16
)

// hkdfInfoPrefix provides domain separation for wrap-key derivation. The
// family id is appended so a wrap key derived for one family can never
// unwrap another family's key, even from the same secret.
const hkdfInfoPrefix = "hearth.invite.wrap.v1:"

// ErrCrypto is returned for every cryptographic failure: bad tag, malformed
// nonce, wrong key size. Callers get one error, never corrupted plaintext.
var ErrCrypto = errors.New("cryptographic operation failed")

// SealedBox is an AEAD-sealed payload split into its wire components
type SealedBox struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

// RandomBytes returns n cryptographically random bytes. Failure here is
// fatal to the caller: no code path may proceed with non-random key material.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// SHA256Base64 returns the standard-base64 SHA-256 digest of data
func SHA256Base64(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// DeriveKey derives a 32-byte wrap key from a one-time secret and salt using
// HKDF-SHA256. The info string binds the derivation to the family id.
func DeriveKey(secret, salt []byte, familyID string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", ErrCrypto)
	}
	r := hkdf.New(sha256.New, secret, salt, []byte(hkdfInfoPrefix+familyID))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("%w: hkdf: %v", ErrCrypto, err)
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM under key, returning the
// ciphertext, nonce and tag separately
func Seal(plaintext, key []byte) (SealedBox, error) {
	aead, err := newGCM(key)
	if err != nil {
		return SealedBox{}, err
	}

	nonce, err := RandomBytes(NonceSize)
	if err != nil {
		return SealedBox{}, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	// GCM appends the tag to the ciphertext
	split := len(sealed) - TagSize
	return SealedBox{
		Ciphertext: sealed[:split],
		Nonce:      nonce,
		Tag:        sealed[split:],
	}, nil
}

// Open decrypts a SealedBox with AES-256-GCM under key. Any tampering with
// ciphertext, nonce or tag fails authentication and returns ErrCrypto.
func Open(box SealedBox, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(box.Nonce) != NonceSize || len(box.Tag) != TagSize {
		return nil, fmt.Errorf("%w: malformed nonce or tag", ErrCrypto)
	}

	sealed := make([]byte, 0, len(box.Ciphertext)+TagSize)
	sealed = append(sealed, box.Ciphertext...)
	sealed = append(sealed, box.Tag...)

	plaintext, err := aead.Open(nil, box.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrCrypto)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrCrypto, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return aead, nil
}
