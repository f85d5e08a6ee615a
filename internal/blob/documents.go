package blob

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"hearth/internal/models"
	"hearth/internal/vault"
)

// MaxDocumentSize caps downloads; anything larger is rejected client-side
const MaxDocumentSize = 64 << 20

// DocumentStore moves document files between the device and blob storage.
// Files are sealed with the family key before upload, so the backend never
// holds plaintext. Decrypted copies live in a per-family cache directory
// that the membership service purges on leave.
type DocumentStore struct {
	storage   Storage
	cipher    *vault.DocumentCipher
	cachePath string
}

// NewDocumentStore creates a document store over the given backend
func NewDocumentStore(storage Storage, cipher *vault.DocumentCipher, cachePath string) *DocumentStore {
	return &DocumentStore{storage: storage, cipher: cipher, cachePath: cachePath}
}

// Upload seals the file with the family key and writes it to the backend.
// The stored object is opaque: octet-stream content type, with the original
// mime and name kept in metadata alongside the encryption marker.
func (d *DocumentStore) Upload(ctx context.Context, doc *models.Document, plaintext []byte, userID string) (string, error) {
	sealed, err := d.cipher.Encrypt(plaintext, doc.FamilyID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt document %s: %w", doc.ID, err)
	}

	path := ObjectPath(doc.FamilyID, doc.ID)
	metadata := map[string]string{
		"enc":  "aes-gcm",
		"mime": doc.MIMEType,
		"name": doc.FileName,
	}
	if err := d.storage.Put(ctx, path, sealed, "application/octet-stream", metadata); err != nil {
		return "", fmt.Errorf("failed to upload document %s: %w", doc.ID, err)
	}
	return path, nil
}

// Download fetches and decrypts the document file, caching the plaintext
// locally when a cache directory is configured.
func (d *DocumentStore) Download(ctx context.Context, doc *models.Document, userID string) ([]byte, error) {
	if cached, ok := d.readCache(doc); ok {
		return cached, nil
	}

	sealed, err := d.storage.Get(ctx, ObjectPath(doc.FamilyID, doc.ID), MaxDocumentSize)
	if err != nil {
		return nil, fmt.Errorf("failed to download document %s: %w", doc.ID, err)
	}
	plaintext, err := d.cipher.Decrypt(sealed, doc.FamilyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt document %s: %w", doc.ID, err)
	}

	d.writeCache(doc, plaintext)
	return plaintext, nil
}

// Remove deletes the stored object and any cached plaintext
func (d *DocumentStore) Remove(ctx context.Context, doc *models.Document) error {
	if err := d.storage.Delete(ctx, ObjectPath(doc.FamilyID, doc.ID)); err != nil {
		return fmt.Errorf("failed to remove document %s: %w", doc.ID, err)
	}
	if p := d.cacheFile(doc); p != "" {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove cached file %s: %v", p, err)
		}
	}
	return nil
}

// Link returns a time-limited download URL for the sealed object. The
// caller still needs the family key to read what it points at.
func (d *DocumentStore) Link(ctx context.Context, doc *models.Document) (string, error) {
	return d.storage.URL(ctx, ObjectPath(doc.FamilyID, doc.ID))
}

func (d *DocumentStore) cacheFile(doc *models.Document) string {
	if d.cachePath == "" {
		return ""
	}
	return filepath.Join(d.cachePath, doc.FamilyID, doc.ID)
}

func (d *DocumentStore) readCache(doc *models.Document) ([]byte, bool) {
	p := d.cacheFile(doc)
	if p == "" {
		return nil, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (d *DocumentStore) writeCache(doc *models.Document, plaintext []byte) {
	p := d.cacheFile(doc)
	if p == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		log.Printf("Failed to create cache dir for %s: %v", doc.ID, err)
		return
	}
	if err := os.WriteFile(p, plaintext, 0o600); err != nil {
		log.Printf("Failed to cache file for %s: %v", doc.ID, err)
	}
}
