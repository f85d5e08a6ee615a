// Package blob stores document files. The interface is small on purpose:
// documents arrive already encrypted, so the backend only ever sees opaque
// bytes plus enough metadata to hand them back.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBlobNotFound is returned when no object exists at the given path
var ErrBlobNotFound = errors.New("blob not found")

// ErrBlobTooLarge is returned when an object exceeds the caller's size cap
var ErrBlobTooLarge = errors.New("blob exceeds size limit")

// Storage is the blob backend contract
type Storage interface {
	// Put writes data at path, overwriting any existing object
	Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error
	// Get reads the object at path. maxSize of 0 means unlimited.
	Get(ctx context.Context, path string, maxSize int64) ([]byte, error)
	// Delete removes the object; deleting a missing object is not an error
	Delete(ctx context.Context, path string) error
	// URL returns a time-limited download link for the object
	URL(ctx context.Context, path string) (string, error)
}

// MemoryStorage is an in-memory Storage for tests and offline development
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// NewMemoryStorage creates an empty in-memory blob store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memObject)}
}

func (s *MemoryStorage) Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj := memObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		metadata:    make(map[string]string, len(metadata)),
	}
	for k, v := range metadata {
		obj.metadata[k] = v
	}
	s.objects[path] = obj
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, path string, maxSize int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[path]
	if !ok {
		return nil, ErrBlobNotFound
	}
	if maxSize > 0 && int64(len(obj.data)) > maxSize {
		return nil, ErrBlobTooLarge
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *MemoryStorage) URL(ctx context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[path]; !ok {
		return "", ErrBlobNotFound
	}
	return "memory://" + path, nil
}

// Metadata returns the stored metadata for an object, for tests
func (s *MemoryStorage) Metadata(path string) (map[string]string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, "", ErrBlobNotFound
	}
	meta := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		meta[k] = v
	}
	return meta, obj.contentType, nil
}

// ObjectPath is the canonical key layout: one prefix per family, the
// document id as the object name.
func ObjectPath(familyID, documentID string) string {
	return fmt.Sprintf("families/%s/documents/%s", familyID, documentID)
}
