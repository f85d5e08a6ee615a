package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"hearth/internal/keystore"
	"hearth/internal/models"
	"hearth/internal/vault"
)

func TestMemoryStoragePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	if err := s.Put(ctx, "families/f1/documents/d1", []byte("sealed"), "application/octet-stream", map[string]string{"enc": "aes-gcm"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "families/f1/documents/d1", 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, []byte("sealed")) {
		t.Errorf("Get() = %q", got)
	}

	if _, err := s.Get(ctx, "families/f1/documents/d1", 3); !errors.Is(err, ErrBlobTooLarge) {
		t.Errorf("Get() with small cap error = %v, want ErrBlobTooLarge", err)
	}

	if err := s.Delete(ctx, "families/f1/documents/d1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "families/f1/documents/d1", 0); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrBlobNotFound", err)
	}
	// Deleting again is a no-op
	if err := s.Delete(ctx, "families/f1/documents/d1"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func newTestDocumentStore(t *testing.T, cachePath string) (*DocumentStore, *MemoryStorage) {
	t.Helper()
	keys := keystore.NewMemoryStore()
	cipher := vault.NewDocumentCipher(keys)
	if _, err := cipher.EnsureFamilyKey("fam-1", "user-a"); err != nil {
		t.Fatalf("failed to create family key: %v", err)
	}
	storage := NewMemoryStorage()
	return NewDocumentStore(storage, cipher, cachePath), storage
}

func testDocument() *models.Document {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	return &models.Document{
		ID: "d1", FamilyID: "fam-1", CategoryID: "cat-1",
		Title: "Vaccination record", FileName: "vaccines.pdf", MIMEType: "application/pdf",
		CreatedAt: now, UpdatedAt: now, UpdatedBy: "user-a",
	}
}

func TestUploadStoresSealedBytes(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestDocumentStore(t, "")
	doc := testDocument()
	plaintext := []byte("patient: Ada, dose 2 of 2")

	path, err := store.Upload(ctx, doc, plaintext, "user-a")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if path != ObjectPath("fam-1", "d1") {
		t.Errorf("path = %q", path)
	}

	raw, err := backend.Get(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, plaintext) {
		t.Error("stored object contains plaintext")
	}

	meta, contentType, err := backend.Metadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "application/octet-stream" {
		t.Errorf("content type = %q", contentType)
	}
	if meta["enc"] != "aes-gcm" || meta["mime"] != "application/pdf" || meta["name"] != "vaccines.pdf" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestDocumentStore(t, "")
	doc := testDocument()
	plaintext := []byte("patient: Ada, dose 2 of 2")

	if _, err := store.Upload(ctx, doc, plaintext, "user-a"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Download(ctx, doc, "user-a")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Download() = %q, want original plaintext", got)
	}
}

func TestDownloadUsesCache(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestDocumentStore(t, t.TempDir())
	doc := testDocument()
	plaintext := []byte("cached content")

	if _, err := store.Upload(ctx, doc, plaintext, "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Download(ctx, doc, "user-a"); err != nil {
		t.Fatal(err)
	}

	// Backend object gone, the cached copy still serves
	if err := backend.Delete(ctx, ObjectPath("fam-1", "d1")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Download(ctx, doc, "user-a")
	if err != nil {
		t.Fatalf("Download() from cache error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("cached Download() = %q", got)
	}
}

func TestRemoveDeletesObjectAndCache(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestDocumentStore(t, t.TempDir())
	doc := testDocument()

	if _, err := store.Upload(ctx, doc, []byte("bye"), "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Download(ctx, doc, "user-a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(ctx, doc); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := backend.Get(ctx, ObjectPath("fam-1", "d1"), 0); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("object survived Remove: %v", err)
	}
	if _, err := store.Download(ctx, doc, "user-a"); err == nil {
		t.Error("Download() succeeded after Remove, cached copy survived")
	}
}

func TestUploadWithoutFamilyKeyFails(t *testing.T) {
	ctx := context.Background()
	keys := keystore.NewMemoryStore()
	store := NewDocumentStore(NewMemoryStorage(), vault.NewDocumentCipher(keys), "")

	doc := testDocument()
	if _, err := store.Upload(ctx, doc, []byte("data"), "user-a"); !errors.Is(err, vault.ErrMissingFamilyKey) {
		t.Errorf("Upload() error = %v, want ErrMissingFamilyKey", err)
	}
}

func TestObjectPath(t *testing.T) {
	if got := ObjectPath("fam-1", "d1"); got != "families/fam-1/documents/d1" {
		t.Errorf("ObjectPath() = %q", got)
	}
}
