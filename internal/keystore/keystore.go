// Package keystore stores per-family symmetric keys in the platform secret
// store, namespaced by (family id, user id) so a revoked or switched user
// never sees another account's key material.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

// serviceName is the app-specific service tag in the platform secret store
const serviceName = "hearth"

// ErrKeyNotFound is returned by Load when no key exists for the composite key
var ErrKeyNotFound = errors.New("family key not found")

// Store saves and loads family master keys. There is deliberately no export
// or enumeration API: a stored key is only ever used in-process.
type Store interface {
	Save(key []byte, familyID, userID string) error
	Load(familyID, userID string) ([]byte, error)
	Delete(familyID, userID string) error
}

// KeyringStore is a Store backed by the OS secret store (Keychain, Secret
// Service, wincred) via 99designs/keyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// OpenKeyring opens the platform secret store under the app's service tag
func OpenKeyring() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open platform keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

func accountKey(familyID, userID string) string {
	return familyID + ":" + userID
}

// Save stores key under (familyID, userID), replacing any existing entry
func (s *KeyringStore) Save(key []byte, familyID, userID string) error {
	err := s.ring.Set(keyring.Item{
		Key:   accountKey(familyID, userID),
		Data:  key,
		Label: serviceName + " family key",
	})
	if err != nil {
		return fmt.Errorf("failed to save family key: %w", err)
	}
	return nil
}

// Load returns the key for (familyID, userID), or ErrKeyNotFound
func (s *KeyringStore) Load(familyID, userID string) ([]byte, error) {
	item, err := s.ring.Get(accountKey(familyID, userID))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load family key: %w", err)
	}
	return item.Data, nil
}

// Delete removes the key for (familyID, userID); absent entries are not an error
func (s *KeyringStore) Delete(familyID, userID string) error {
	err := s.ring.Remove(accountKey(familyID, userID))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete family key: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and the demo daemon
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string][]byte
}

// NewMemoryStore creates an empty in-memory key store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string][]byte)}
}

func (s *MemoryStore) Save(key []byte, familyID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(key))
	copy(cp, key)
	s.keys[accountKey(familyID, userID)] = cp
	return nil
}

func (s *MemoryStore) Load(familyID, userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[accountKey(familyID, userID)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	return cp, nil
}

func (s *MemoryStore) Delete(familyID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, accountKey(familyID, userID))
	return nil
}
