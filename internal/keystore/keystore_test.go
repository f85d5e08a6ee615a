package keystore

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	s := NewMemoryStore()
	key := []byte("0123456789abcdef0123456789abcdef")

	if err := s.Save(key, "fam-1", "user-a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load("fam-1", "user-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Errorf("Load() = %x, want %x", got, key)
	}
}

func TestMemoryStoreCompositeKeyIsolation(t *testing.T) {
	s := NewMemoryStore()
	keyA := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	keyB := []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	if err := s.Save(keyA, "fam-1", "user-a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(keyB, "fam-1", "user-b"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Same family, different user: independent entries
	got, err := s.Load("fam-1", "user-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, keyA) {
		t.Errorf("user-a got user-b's key")
	}

	// Different family entirely absent
	if _, err := s.Load("fam-2", "user-a"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Load() for unknown family error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Save([]byte("old"), "fam-1", "user-a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save([]byte("new"), "fam-1", "user-a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := s.Load("fam-1", "user-a")
	if string(got) != "new" {
		t.Errorf("Load() after overwrite = %q, want %q", got, "new")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Save([]byte("k"), "fam-1", "user-a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Delete("fam-1", "user-a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Load("fam-1", "user-a"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Load() after delete error = %v, want ErrKeyNotFound", err)
	}

	// Deleting an absent entry is not an error
	if err := s.Delete("fam-1", "user-a"); err != nil {
		t.Errorf("Delete() of absent entry error = %v", err)
	}
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	key := []byte("0123456789abcdef0123456789abcdef")
	if err := s.Save(key, "fam-1", "user-a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := s.Load("fam-1", "user-a")
	got[0] = 'X'

	again, _ := s.Load("fam-1", "user-a")
	if again[0] == 'X' {
		t.Error("mutating a loaded key changed the stored key")
	}
}
