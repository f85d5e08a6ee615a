// Package vault encrypts and decrypts document content with the per-family
// master key. It is the hard dependency that makes the invite protocol
// mandatory: without a key in the keystore for (family, user), nothing here
// works.
package vault

import (
	"errors"
	"fmt"

	"hearth/internal/cryptoutil"
	"hearth/internal/keystore"
)

var (
	// ErrMissingFamilyKey means the keystore has no entry for this
	// family/user pair; the device has not completed a join.
	ErrMissingFamilyKey = errors.New("no family key for this family and user")

	// ErrInvalidCipher means the ciphertext is malformed or failed
	// authentication
	ErrInvalidCipher = errors.New("invalid ciphertext")
)

// DocumentCipher encrypts and decrypts document payloads
type DocumentCipher struct {
	keys keystore.Store
}

// NewDocumentCipher creates a DocumentCipher over the given key store
func NewDocumentCipher(keys keystore.Store) *DocumentCipher {
	return &DocumentCipher{keys: keys}
}

// EnsureFamilyKey returns the family master key for (familyID, userID),
// generating and storing a fresh 32-byte key if none exists. Used on the
// invite issue side, where the caller is the family's first device.
func (c *DocumentCipher) EnsureFamilyKey(familyID, userID string) ([]byte, error) {
	key, err := c.keys.Load(familyID, userID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, err
	}

	key, err = cryptoutil.RandomBytes(cryptoutil.KeySize)
	if err != nil {
		return nil, err
	}
	if err := c.keys.Save(key, familyID, userID); err != nil {
		return nil, fmt.Errorf("failed to store new family key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under the family key. The output is self-contained
// (nonce ‖ ciphertext ‖ tag), so decryption needs no auxiliary metadata.
func (c *DocumentCipher) Encrypt(plaintext []byte, familyID, userID string) ([]byte, error) {
	key, err := c.familyKey(familyID, userID)
	if err != nil {
		return nil, err
	}

	box, err := cryptoutil.Seal(plaintext, key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(box.Nonce)+len(box.Ciphertext)+len(box.Tag))
	out = append(out, box.Nonce...)
	out = append(out, box.Ciphertext...)
	out = append(out, box.Tag...)
	return out, nil
}

// Decrypt opens a nonce‖ciphertext‖tag payload under the family key
func (c *DocumentCipher) Decrypt(ciphertext []byte, familyID, userID string) ([]byte, error) {
	key, err := c.familyKey(familyID, userID)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < cryptoutil.NonceSize+cryptoutil.TagSize {
		return nil, fmt.Errorf("%w: payload too short", ErrInvalidCipher)
	}

	box := cryptoutil.SealedBox{
		Nonce:      ciphertext[:cryptoutil.NonceSize],
		Ciphertext: ciphertext[cryptoutil.NonceSize : len(ciphertext)-cryptoutil.TagSize],
		Tag:        ciphertext[len(ciphertext)-cryptoutil.TagSize:],
	}

	plaintext, err := cryptoutil.Open(box, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCipher, err)
	}
	return plaintext, nil
}

func (c *DocumentCipher) familyKey(familyID, userID string) ([]byte, error) {
	key, err := c.keys.Load(familyID, userID)
	if errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, ErrMissingFamilyKey
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}
