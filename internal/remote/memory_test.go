package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hearth/internal/models"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	col := db.Collection("fam-1", ColTodos)

	doc := json.RawMessage(`{"id":"t1","title":"pack lunch"}`)
	if err := col.Set(ctx, "t1", doc); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := col.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(doc) {
		t.Errorf("Get() = %s, want %s", got, doc)
	}

	if err := col.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := col.Get(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCollectionsAreScopedByFamily(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()

	if err := db.Collection("fam-1", ColTodos).Set(ctx, "t1", json.RawMessage(`{"id":"t1"}`)); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Collection("fam-2", ColTodos).Get(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("record leaked across family scopes: err = %v", err)
	}
}

func TestMemorySubscribeDeliversChanges(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	col := db.Collection("fam-1", ColTodos)

	ch, cancel := col.Subscribe()
	defer cancel()

	if err := col.Set(ctx, "t1", json.RawMessage(`{"id":"t1"}`)); err != nil {
		t.Fatal(err)
	}
	if err := col.Delete(ctx, "t1"); err != nil {
		t.Fatal(err)
	}

	var got []Change
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case batch := <-ch:
			got = append(got, batch...)
		case <-timeout:
			t.Fatalf("timed out waiting for changes, got %d", len(got))
		}
	}

	if got[0].Kind != ChangeUpserted || got[0].ID != "t1" {
		t.Errorf("first change = %+v, want upsert of t1", got[0])
	}
	if got[1].Kind != ChangeRemoved || got[1].ID != "t1" {
		t.Errorf("second change = %+v, want removal of t1", got[1])
	}
}

func TestMemoryTransactionAtomicity(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	col := db.Collection("fam-1", ColInvites)

	if err := col.Set(ctx, "inv-1", json.RawMessage(`{"id":"inv-1","state":"fresh"}`)); err != nil {
		t.Fatal(err)
	}

	// A failing transaction must leave no trace of its writes
	wantErr := errors.New("validation failed")
	err := db.RunTransaction(ctx, "fam-1", func(tx Tx) error {
		if err := tx.Set(ColInvites, "inv-1", json.RawMessage(`{"id":"inv-1","state":"used"}`)); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunTransaction() error = %v, want %v", err, wantErr)
	}

	doc, _ := col.Get(ctx, "inv-1")
	var probe struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		t.Fatal(err)
	}
	if probe.State != "fresh" {
		t.Errorf("aborted transaction leaked a write: state = %q", probe.State)
	}
}

func TestMemoryTransactionReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()

	err := db.RunTransaction(ctx, "fam-1", func(tx Tx) error {
		if err := tx.Set(ColInvites, "inv-1", json.RawMessage(`{"id":"inv-1"}`)); err != nil {
			return err
		}
		doc, err := tx.Get(ColInvites, "inv-1")
		if err != nil {
			return err
		}
		if len(doc) == 0 {
			return errors.New("staged write not visible")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTransaction() error = %v", err)
	}
}

func TestMembershipsAcrossFamilies(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()

	seed := func(familyID, memberID, userID string, deleted bool) {
		m := models.FamilyMember{ID: memberID, FamilyID: familyID, UserID: userID, Deleted: deleted}
		doc, _ := json.Marshal(m)
		if err := db.Collection(familyID, ColMembers).Set(ctx, memberID, doc); err != nil {
			t.Fatal(err)
		}
	}
	seed("fam-1", "m1", "user-a", false)
	seed("fam-2", "m2", "user-a", false)
	seed("fam-3", "m3", "user-a", true) // left this one
	seed("fam-1", "m4", "user-b", false)

	docs, err := db.Memberships(ctx, "user-a")
	if err != nil {
		t.Fatalf("Memberships() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Memberships() returned %d records, want 2", len(docs))
	}
}

func TestStoreSoftDeleteKeepsRecordVisible(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	stores := For(db, "fam-1")

	todo := &models.TodoItem{ID: "t1", FamilyID: "fam-1", Title: "dentist", UpdatedAt: time.Now().Add(-time.Hour)}
	if err := stores.Todos.Upsert(ctx, todo.ID, todo); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	if err := stores.Todos.SoftDelete(ctx, "t1", "user-a", now); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	got, err := stores.Todos.Fetch(ctx, "t1")
	if err != nil {
		t.Fatalf("Fetch() after soft delete error = %v", err)
	}
	if !got.Deleted {
		t.Error("soft-deleted record not flagged deleted")
	}
	if got.UpdatedBy != "user-a" {
		t.Errorf("updatedBy = %q, want user-a", got.UpdatedBy)
	}
	if !got.UpdatedAt.After(todo.UpdatedAt) {
		t.Error("soft delete did not advance updatedAt")
	}
}
